package main

import "testing"

func TestBuildRootRegistersSubcommands(t *testing.T) {
	root := buildRoot()

	want := []string{
		"status", "start", "stop", "restart",
		"build", "setup", "reset", "activate", "plugins",
		"extensions", "upgrade", "version",
	}
	have := make(map[string]bool)
	for _, sub := range root.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestExtensionsSubtree(t *testing.T) {
	root := buildRoot()
	ext, _, err := root.Find([]string{"extensions", "list"})
	if err != nil || ext.Name() != "list" {
		t.Fatalf("extensions list not wired: %v", err)
	}
	if up, _, err := root.Find([]string{"extensions", "upgrade"}); err != nil || up.Name() != "upgrade" {
		t.Fatalf("extensions upgrade not wired: %v", err)
	}
}
