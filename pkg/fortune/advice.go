package fortune

// advicePools maps an advice category to its snippet pool. Categories
// line up with Card.AdviceCategory; unknown categories fall back to
// the general pool.
var advicePools = map[string][]string{
	"security": {
		"Secure keys offline.",
		"Verify hardware wallet RNG.",
		"Use strong, unique passphrases.",
		"Update node/wallet software regularly.",
		"Beware unsolicited DMs/offers.",
	},
	"backup": {
		"Verify your seed phrase backup.",
		"Consider metal seed storage.",
		"Test your recovery plan.",
		"Backup wallet files/configs.",
		"Multisig needs seeds, xpubs/paths & config.",
	},
	"strategy": {
		"Low time preference wins.",
		"DCA through market cycles.",
		"Define your Bitcoin strategy.",
		"Avoid FOMO & panic selling.",
		"Understand risk management.",
	},
	"privacy": {
		"Mind your UTXO privacy.",
		"Consider CoinJoin/mixing tools.",
		"Use Tor for node connections.",
		"Label addresses privately.",
		"Avoid KYC where possible/legal.",
	},
	"network": {
		"Run your own full node for sovereignty.",
		"Verify software signatures.",
		"Understand mempool dynamics/fees.",
		"Support Bitcoin Core development.",
		"Learn about Layer 2 solutions.",
	},
	"spending": {
		"Consolidate UTXOs wisely for lower fees.",
		"Label outgoing transactions.",
		"Understand replace-by-fee (RBF).",
		"Use Lightning for small payments.",
		"Spend & replace to build the circular economy.",
	},
	"hodl": {
		"Patience during volatility is key.",
		"HODL with conviction.",
		"Understand Bitcoin's long-term value.",
		"Resist FUD with knowledge.",
		"Secure cold storage is paramount.",
	},
	"learning": {
		"Never stop learning; read whitepapers.",
		"Verify, don't trust.",
		"Understand consensus rules.",
		"Research before investing.",
		"Follow reputable Bitcoin educators.",
	},
	"tech_dev": {
		"Contribute to open-source projects.",
		"Master Lightning Network tools.",
		"Learn basic cryptography principles.",
		"Explore Bitcoin scripting potential.",
		"Build on Bitcoin!",
	},
	"general": {
		"Not your keys, not your coins.",
		"Stay humble, stack sats.",
		"Focus on the fundamentals.",
		"Bitcoin fixes this (eventually).",
		"Separate signal from noise.",
		"Spend & replace; build the circular economy.",
	},
}
