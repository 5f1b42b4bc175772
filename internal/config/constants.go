package config

const (
	// DefaultConfigPath is where the config file is looked up and written.
	DefaultConfigPath = "./config.yml"

	// DefaultJournalPath is the default path for the local sync journal.
	DefaultJournalPath = "./zot2rm.db"

	// DefaultRendererCommand renders a device export bundle into a base PDF
	// plus the highlight export tree.
	DefaultRendererCommand = "remarks"
)
