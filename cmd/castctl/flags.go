package main

// Flag structs to decouple cobra from the handlers for testing.

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
}

type StatusFlags struct {
	Detailed bool
}

type ExtensionsFlags struct {
	JSON bool
}

type UpgradeFlags struct {
	History      bool
	HistoryLimit int
}
