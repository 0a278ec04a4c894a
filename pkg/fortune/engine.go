package fortune

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Payout tier parameters. Tier percentages apply to the effective
// pool (the persisted pool floored at the minimum seed); the actual
// payout is always capped at the persisted pool.
var (
	tierAPercent = decimal.NewFromFloat(0.35)
	tierBPercent = decimal.NewFromFloat(0.15)
)

const (
	tierAMinSats int64 = 75
	tierBMinSats int64 = 21
)

// Result is the outcome of evaluating a three-card draw. Clamped is
// set when the tier payout exceeded what the pool held and SatsWon was
// reduced to drain it instead.
type Result struct {
	Fortune   string
	SatsWon   int64
	IsJackpot bool
	Clamped   bool
}

// combo is one row of the winning combination table. Rows are checked
// in order and the first match wins. tier computes the uncapped payout
// from the effective pool.
type combo struct {
	cards   []string
	tier    func(effective int64) int64
	fortune string
	jackpot bool
}

var combos = []combo{
	{
		cards:   []string{"The Sun", "The World", "The Magician"},
		tier:    jackpotPayout,
		fortune: "*** JACKPOT! *** Sun (XVIII), World (XX), Magician (I)! Ultimate Bitcoin alignment! %d sats added to your balance!",
		jackpot: true,
	},
	{
		cards:   []string{"The Sun", "The World", "Ace of Pentacles"},
		tier:    tierAPayout,
		fortune: "Major Win! Brilliance (XVIII), completion (XX), new wealth (XXI)! +%d sats to your balance!",
	},
	{
		cards:   []string{"The Emperor", "The Empress", "Strength"},
		tier:    tierAPayout,
		fortune: "Major Win! Sovereign power (IV & III) and inner fortitude (VIII)! +%d sats to your balance!",
	},
	{
		cards:   []string{"The Star", "The Sun", "Temperance"},
		tier:    tierAPayout,
		fortune: "Major Win! Hope (XVI), clarity (XVIII), and balance (XIV) unite! +%d sats to your balance!",
	},
	{
		cards:   []string{"Ace of Pentacles", "Wheel of Fortune"},
		tier:    tierBPayout,
		fortune: "Minor Win! Opportunity (XXI) meets good fortune (X)! +%d sats to your balance!",
	},
	{
		cards:   []string{"The Chariot", "Strength"},
		tier:    tierBPayout,
		fortune: "Minor Win! Focused willpower (VII) and courage (VIII)! +%d sats to your balance!",
	},
	{
		cards:   []string{"The Sun", "The Lovers"},
		tier:    tierBPayout,
		fortune: "Minor Win! Joyful alignment (XVIII) and connection (VI)! +%d sats to your balance!",
	},
}

func jackpotPayout(effective int64) int64 {
	return effective
}

func tierAPayout(effective int64) int64 {
	p := decimal.NewFromInt(effective).Mul(tierAPercent).Floor().IntPart()
	return maxInt64(tierAMinSats, p)
}

func tierBPayout(effective int64) int64 {
	p := decimal.NewFromInt(effective).Mul(tierBPercent).Floor().IntPart()
	return maxInt64(tierBMinSats, p)
}

// templates for non-winning readings. Placeholders in order: first
// card keyword and number, second card keyword and number, advice
// snippet and third card number.
var templates = []string{
	"Initial %s (%s) encounters %s (%s). Practical advice: %s (%s).",
	"Through %s (%s) and %s (%s), remember this key principle: %s (%s).",
	"%s (%s) sets the stage, %s (%s) presents a challenge. The wise action? %s (%s).",
	"Focus on %s (%s); integrate %s (%s). Always be mindful to: %s (%s).",
	"The path shows %s (%s), then %s (%s). Your Bitcoin focus now: %s (%s).",
	"From %s (%s), influenced by %s (%s), consider this: %s (%s).",
}

const fallbackFortune = "The blockchain remains enigmatic... [Error generating fortune]"

// Engine draws cards and evaluates readings. Safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine returns an engine seeded from the clock.
func NewEngine() *Engine {
	return NewEngineWithSeed(time.Now().UnixNano())
}

// NewEngineWithSeed returns an engine with a deterministic source,
// mainly for tests.
func NewEngineWithSeed(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

// DrawThree shuffles a copy of the deck and returns the top three
// cards.
func (e *Engine) DrawThree() []Card {
	deck := Deck()
	e.mu.Lock()
	for i := len(deck) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	e.mu.Unlock()
	return deck[:3]
}

// Evaluate classifies a drawn spread against the combination table
// and produces the reading. pool is the persisted jackpot pool;
// minSeed floors the effective pool used for payout sizing so early
// draws still pay meaningful amounts, while the actual payout never
// exceeds what the pool holds.
func (e *Engine) Evaluate(cards []Card, pool, minSeed int64) Result {
	names := lo.Map(cards, func(c Card, _ int) string { return c.ShortName() })
	effective := maxInt64(pool, minSeed)

	for _, cb := range combos {
		if containsAll(names, cb.cards) {
			raw := maxInt64(0, cb.tier(effective))
			won := minInt64(raw, maxInt64(0, pool))
			return Result{
				Fortune:   fmt.Sprintf(cb.fortune, won),
				SatsWon:   won,
				IsJackpot: cb.jackpot,
				Clamped:   raw > won,
			}
		}
	}

	if len(cards) < 3 {
		return Result{Fortune: fallbackFortune}
	}

	kw1 := e.randomKeyword(cards[0])
	kw2 := e.randomKeyword(cards[1])
	category := cards[2].AdviceCategory
	if category == "" {
		category = cards[1].AdviceCategory
	}
	if category == "" {
		category = "general"
	}
	advice := e.randomAdvice(category)

	e.mu.Lock()
	tmpl := templates[e.rng.Intn(len(templates))]
	e.mu.Unlock()

	fortune := fmt.Sprintf(tmpl,
		kw1, cards[0].Number,
		kw2, cards[1].Number,
		advice, cards[2].Number)
	return Result{Fortune: capitalizeFirst(fortune)}
}

func (e *Engine) randomKeyword(card Card) string {
	if len(card.Keywords) == 0 {
		return "an unknown influence"
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return card.Keywords[e.rng.Intn(len(card.Keywords))]
}

func (e *Engine) randomAdvice(category string) string {
	pool, ok := advicePools[category]
	if !ok || len(pool) == 0 {
		pool = advicePools["general"]
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return pool[e.rng.Intn(len(pool))]
}

func containsAll(names []string, wanted []string) bool {
	return lo.Every(names, wanted)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
