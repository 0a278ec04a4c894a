// Package fortune holds the tarot card catalog and the draw engine
// that classifies a three-card draw against the winning combination
// table and produces the reading text.
package fortune

import "strings"

// Card is a static catalog entry. The catalog is immutable reference
// data; cards are passed by value.
type Card struct {
	Name           string   `json:"name"`
	Number         string   `json:"number"`
	Image          string   `json:"image"`
	Keywords       []string `json:"-"`
	AdviceCategory string   `json:"-"`
}

// ShortName strips the ordinal prefix from the card name, so that
// combination matching is independent of numbering ("XVIII The Sun"
// matches as "The Sun", "XXI Ace of Pentacles" as "Ace of Pentacles").
func (c Card) ShortName() string {
	parts := strings.Split(c.Name, " ")
	if len(parts) < 2 {
		return c.Name
	}
	return strings.Join(parts[1:], " ")
}

// majorArcana is the full 22-card deck.
var majorArcana = []Card{
	{
		Name:   "00 The Fool",
		Number: "00",
		Image:  "0-fool.webp",
		Keywords: []string{
			"a risky leap",
			"new beginnings",
			"potential volatility",
			"untested paths",
		},
		AdviceCategory: "strategy",
	},
	{
		Name:   "I The Magician",
		Number: "I",
		Image:  "1-magician.webp",
		Keywords: []string{
			"skillful execution",
			"manifesting value",
			"resourcefulness",
			"technical mastery",
		},
		AdviceCategory: "tech_dev",
	},
	{
		Name:   "II The High Priestess",
		Number: "II",
		Image:  "2-high-priestess.webp",
		Keywords: []string{
			"hidden knowledge",
			"trusting intuition",
			"cypherpunk secrets",
			"verifying code",
		},
		AdviceCategory: "privacy",
	},
	{
		Name:   "III The Empress",
		Number: "III",
		Image:  "3-empress.webp",
		Keywords: []string{
			"creative abundance",
			"nurturing growth",
			"stacking sats",
			"fertile innovation",
		},
		AdviceCategory: "spending",
	},
	{
		Name:   "IV The Emperor",
		Number: "IV",
		Image:  "4-emperor.webp",
		Keywords: []string{
			"establishing structure",
			"regulatory control",
			"stable foundations",
			"protocol rules",
		},
		AdviceCategory: "security",
	},
	{
		Name:   "V The Hierophant",
		Number: "V",
		Image:  "5-hierophant.webp",
		Keywords: []string{
			"legacy systems",
			"institutional adoption",
			"learning tradition",
			"established consensus",
		},
		AdviceCategory: "learning",
	},
	{
		Name:   "VI The Lovers",
		Number: "VI",
		Image:  "6-lovers.webp",
		Keywords: []string{
			"important choices",
			"community alignment",
			"network collaboration",
			"harmonious partnerships",
		},
		AdviceCategory: "strategy",
	},
	{
		Name:   "VII The Chariot",
		Number: "VII",
		Image:  "7-chariot.webp",
		Keywords: []string{
			"determined drive",
			"overcoming obstacles",
			"focused ambition",
			"transaction speed",
		},
		AdviceCategory: "tech_dev",
	},
	{
		Name:   "VIII Strength",
		Number: "VIII",
		Image:  "8-strength.webp",
		Keywords: []string{
			"inner fortitude",
			"HODLing strong",
			"resilience to FUD",
			"patient courage",
		},
		AdviceCategory: "hodl",
	},
	{
		Name:   "IX The Hermit",
		Number: "IX",
		Image:  "9-hermit.webp",
		Keywords: []string{
			"deep research",
			"seeking truth",
			"independent verification",
			"sovereign thought",
		},
		AdviceCategory: "learning",
	},
	{
		Name:   "X Wheel of Fortune",
		Number: "X",
		Image:  "10-wheel-of-fortune.webp",
		Keywords: []string{
			"market cycles",
			"inevitable change",
			"adapting to trends",
			"DCA timing",
		},
		AdviceCategory: "strategy",
	},
	{
		Name:   "XI Justice",
		Number: "XI",
		Image:  "11-justice.webp",
		Keywords: []string{
			"protocol fairness",
			"immutable truth",
			"transparent accountability",
			"code is law",
		},
		AdviceCategory: "network",
	},
	{
		Name:   "XII The Hanged Man",
		Number: "XII",
		Image:  "12-hanged-man.webp",
		Keywords: []string{
			"a necessary pause",
			"shifting perspective",
			"calculated risk",
			"low time preference",
		},
		AdviceCategory: "hodl",
	},
	{
		Name:   "XIII Death",
		Number: "XIII",
		Image:  "13-death.webp",
		Keywords: []string{
			"radical transformation",
			"ending old ways",
			"protocol upgrades",
			"creative destruction",
		},
		AdviceCategory: "tech_dev",
	},
	{
		Name:   "XIV Temperance",
		Number: "XIV",
		Image:  "14-temperance.webp",
		Keywords: []string{
			"finding balance",
			"integrating systems",
			"patient development",
			"portfolio moderation",
		},
		AdviceCategory: "strategy",
	},
	{
		Name:   "XV The Tower",
		Number: "XV",
		Image:  "15-tower.webp",
		Keywords: []string{
			"sudden disruption",
			"exchange collapse",
			"protocol failure",
			"market shock",
		},
		AdviceCategory: "security",
	},
	{
		Name:   "XVI The Star",
		Number: "XVI",
		Image:  "16-star.webp",
		Keywords: []string{
			"renewed hope",
			"open-source inspiration",
			"guiding light",
			"optimistic future",
		},
		AdviceCategory: "network",
	},
	{
		Name:   "XVII The Moon",
		Number: "XVII",
		Image:  "17-moon.webp",
		Keywords: []string{
			"navigating uncertainty",
			"market FUD",
			"hidden variables",
			"shadowy super coders",
		},
		AdviceCategory: "privacy",
	},
	{
		Name:   "XVIII The Sun",
		Number: "XVIII",
		Image:  "18-sun.webp",
		Keywords: []string{
			"clarity and success",
			"peak enlightenment",
			"bull market joy",
			"protocol vitality",
		},
		AdviceCategory: "general",
	},
	{
		Name:   "XIX Judgment",
		Number: "XIX",
		Image:  "19-judgement.webp",
		Keywords: []string{
			"a final reckoning",
			"code audit results",
			"awakening to truth",
			"network consensus",
		},
		AdviceCategory: "backup",
	},
	{
		Name:   "XX The World",
		Number: "XX",
		Image:  "20-world.webp",
		Keywords: []string{
			"global adoption",
			"project completion",
			"network integration",
			"ultimate success",
		},
		AdviceCategory: "network",
	},
	{
		Name:   "XXI Ace of Pentacles",
		Number: "XXI",
		Image:  "21-ace-of-pentacles.webp",
		Keywords: []string{
			"new financial opportunity",
			"seed investment",
			"tangible results",
			"staking rewards",
		},
		AdviceCategory: "spending",
	},
}

// Deck returns a copy of the full catalog.
func Deck() []Card {
	deck := make([]Card, len(majorArcana))
	copy(deck, majorArcana)
	return deck
}

// DeckSize is the number of cards in the catalog.
const DeckSize = 22

// BonusTableau is the fixed three-card spread shown on the one-time
// first-play bonus. The draw engine is bypassed for it.
func BonusTableau() []Card {
	return []Card{
		{Name: "XXI Ace of Pentacles", Number: "XXI", Image: "21-ace-of-pentacles.webp"},
		{Name: "X Wheel of Fortune", Number: "X", Image: "10-wheel-of-fortune.webp"},
		{Name: "XI Justice", Number: "XI", Image: "11-justice.webp"},
	}
}
