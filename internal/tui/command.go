package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// CommandSpec documents one ':' command.
type CommandSpec struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
}

// Commands lists the ':' commands in help order.
var Commands = []CommandSpec{
	{Name: "new", Aliases: []string{"n"}, Usage: ":new", Help: "Start a new conversation"},
	{Name: "history", Aliases: []string{"hist"}, Usage: ":history [query]", Help: "Browse or search past conversations"},
	{Name: "export", Usage: ":export [text|json]", Help: "Export the current conversation"},
	{Name: "mode", Usage: ":mode click|auto|push", Help: "Change how the microphone activates"},
	{Name: "memory", Usage: ":memory on|off", Help: "Send earlier messages as context"},
	{Name: "autoread", Usage: ":autoread on|off", Help: "Read replies aloud"},
	{Name: "speak", Usage: ":speak [text]", Help: "Read text, or the last reply, aloud"},
	{Name: "sync", Usage: ":sync", Help: "Reload conversations from your account"},
	{Name: "login", Usage: ":login", Help: "Sign in"},
	{Name: "logout", Usage: ":logout", Help: "Sign out"},
	{Name: "help", Aliases: []string{"h"}, Usage: ":help", Help: "Show this help"},
	{Name: "quit", Aliases: []string{"q"}, Usage: ":quit", Help: "Quit"},
}

// Resolve maps aliases to the command name. Unknown commands return an error.
func (c Command) Resolve() (Command, error) {
	for _, cmd := range Commands {
		if cmd.Name == c.Name {
			return c, nil
		}
		for _, a := range cmd.Aliases {
			if a == c.Name {
				c.Name = cmd.Name
				return c, nil
			}
		}
	}
	return c, fmt.Errorf("unknown command: %s", c.Name)
}

// ParseSwitch reads an on/off argument.
func ParseSwitch(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}
