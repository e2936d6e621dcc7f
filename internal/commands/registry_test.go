package commands_test

import (
	"errors"
	"testing"

	"livetask/internal/commands"
)

func TestRegistry_FindByAlias(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.ListCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"list", "ls"} {
		cmd, ok := r.Find(name)
		if !ok || cmd.Name() != "list" {
			t.Errorf("%s: expected list command, got %v", name, cmd)
		}
	}
	if _, ok := r.Find("nope"); ok {
		t.Error("expected unknown name not found")
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := commands.NewRegistry()
	_ = r.Register(&commands.DoneCmd{})

	err := r.Register(&commands.DoneCmd{})
	if !errors.Is(err, commands.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if len(r.All()) != 1 {
		t.Errorf("expected one command, got %d", len(r.All()))
	}
}

func TestDefaultRegistry_Sorted(t *testing.T) {
	var names []string
	for _, c := range commands.DefaultRegistry.All() {
		names = append(names, c.Name())
	}

	want := []string{"add", "done", "edit", "help", "list", "login", "logout", "rm", "serve", "shell", "version", "watch"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}
