package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/profile"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/tui/client"
)

const sendTimeout = 2 * time.Minute

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show the daemon and account status",
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Session.Status(ctx, &rpc.StatusRequest{})
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, resp)
				}
				printStatus(c.App.Writer, resp)
				return nil
			})
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in to the assistant account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, EnvVars: []string{"CHARLY_EMAIL"}},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"CHARLY_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Session.Login(ctx, &rpc.LoginRequest{Email: c.String("email"), Password: c.String("password")})
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, resp)
				}
				fmt.Fprintf(c.App.Writer, "Signed in as %s <%s>\n", resp.User.Name, resp.User.Email)
				return nil
			})
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out and forget the stored session",
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Session.Logout(ctx)
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, resp)
				}
				fmt.Fprintln(c.App.Writer, resp.Message)
				return nil
			})
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "ask the assistant a question",
		ArgsUsage: "<text...>",
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				return cli.Exit("usage: charlyctl send <text...>", 1)
			}
			return withClient(c, sendTimeout, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Chat.Send(ctx, &rpc.SendRequest{Text: text})
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, resp)
				}
				printReply(c.App.Writer, resp)
				return nil
			})
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "start a new conversation",
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Chat.NewConversation(ctx)
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, resp)
				}
				fmt.Fprintf(c.App.Writer, "Started conversation %s\n", resp.Conversation.ID)
				return nil
			})
		},
	}
}

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "show or change the chat preferences",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "memory", Usage: "on|off: send earlier messages as context"},
			&cli.StringFlag{Name: "autoread", Usage: "on|off: read replies aloud"},
		},
		Action: func(c *cli.Context) error {
			var req rpc.SetPreferencesRequest
			for _, f := range []struct {
				name string
				dst  **bool
			}{
				{"memory", &req.MemoryEnabled},
				{"autoread", &req.AutoRead},
			} {
				if !c.IsSet(f.name) {
					continue
				}
				v, err := parseSwitch(c.String(f.name))
				if err != nil {
					return cli.Exit(fmt.Sprintf("--%s: %v", f.name, err), 1)
				}
				*f.dst = &v
			}

			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				var (
					prefs *rpc.Preferences
					err   error
				)
				if req.MemoryEnabled == nil && req.AutoRead == nil {
					prefs, err = cl.Chat.GetPreferences(ctx)
				} else {
					prefs, err = cl.Chat.SetPreferences(ctx, &req)
				}
				if err != nil {
					return friendly(err)
				}
				if c.Bool("json") {
					return outputJSON(c.App.Writer, prefs)
				}
				fmt.Fprintf(c.App.Writer, "memory:   %s\nautoread: %s\n", onOff(prefs.MemoryEnabled), onOff(prefs.AutoRead))
				return nil
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "browse past conversations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list conversations, most recent first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Value: "all", Usage: "all|today|week|favorites"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search titles and messages"},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						resp, err := cl.History.List(ctx, &rpc.ListRequest{Filter: c.String("filter"), Query: c.String("query")})
						if err != nil {
							return friendly(err)
						}
						if c.Bool("json") {
							return outputJSON(c.App.Writer, resp)
						}
						printConversations(c.App.Writer, resp.Conversations, time.Now())
						return nil
					})
				},
			},
			{
				Name:      "show",
				Usage:     "print a conversation",
				ArgsUsage: "<id>",
				Action: idAction(func(c *cli.Context, ctx context.Context, cl *client.Client, id string) error {
					resp, err := cl.History.Get(ctx, id)
					if err != nil {
						return friendly(err)
					}
					if c.Bool("json") {
						return outputJSON(c.App.Writer, resp)
					}
					printConversation(c.App.Writer, &resp.Conversation)
					return nil
				}),
			},
			{
				Name:      "open",
				Usage:     "make a conversation current",
				ArgsUsage: "<id>",
				Action: idAction(func(c *cli.Context, ctx context.Context, cl *client.Client, id string) error {
					resp, err := cl.History.Open(ctx, id)
					if err != nil {
						return friendly(err)
					}
					fmt.Fprintf(c.App.Writer, "Opened %q\n", resp.Conversation.Title)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a conversation",
				ArgsUsage: "<id>",
				Action: idAction(func(c *cli.Context, ctx context.Context, cl *client.Client, id string) error {
					if _, err := cl.History.Delete(ctx, id); err != nil {
						return friendly(err)
					}
					fmt.Fprintf(c.App.Writer, "Deleted %s\n", id)
					return nil
				}),
			},
			{
				Name:      "favorite",
				Usage:     "toggle the favorite flag",
				ArgsUsage: "<id>",
				Action: idAction(func(c *cli.Context, ctx context.Context, cl *client.Client, id string) error {
					resp, err := cl.History.ToggleFavorite(ctx, id)
					if err != nil {
						return friendly(err)
					}
					if resp.Favorite {
						fmt.Fprintf(c.App.Writer, "%s is now a favorite\n", id)
					} else {
						fmt.Fprintf(c.App.Writer, "%s is no longer a favorite\n", id)
					}
					return nil
				}),
			},
			{
				Name:      "export",
				Usage:     "export a conversation (the current one without an id)",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "text", Usage: "text|json"},
					&cli.StringFlag{Name: "out", Usage: "output directory (default: the profile exports dir, - for stdout)"},
				},
				Action: func(c *cli.Context) error {
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						resp, err := cl.History.Export(ctx, &rpc.ExportRequest{ID: c.Args().First(), Format: c.String("format")})
						if err != nil {
							return friendly(err)
						}
						if c.String("out") == "-" {
							_, err := fmt.Fprint(c.App.Writer, resp.Content)
							return err
						}
						path, err := writeExport(c.String("out"), profileName(c), resp)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Exported to %s\n", path)
						return nil
					})
				},
			},
			{
				Name:  "sync",
				Usage: "reload conversations from the account",
				Action: func(c *cli.Context) error {
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						info, err := cl.History.Sync(ctx)
						if err != nil {
							return friendly(err)
						}
						if c.Bool("json") {
							return outputJSON(c.App.Writer, info)
						}
						fmt.Fprintf(c.App.Writer, "Loaded %d conversations (%d from the server)\n", info.Conversations, info.Server)
						return nil
					})
				},
			},
		},
	}
}

func idAction(fn func(c *cli.Context, ctx context.Context, cl *client.Client, id string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		id := c.Args().First()
		if id == "" {
			return cli.Exit("a conversation id is required", 1)
		}
		return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
			return fn(c, ctx, cl, id)
		})
	}
}

func writeExport(dir, profileName string, resp *rpc.ExportResponse) (string, error) {
	if dir == "" {
		dir = profile.ExportDir(profileName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, resp.Filename)
	if err := os.WriteFile(path, []byte(resp.Content), 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func voiceCommand() *cli.Command {
	printVoice := func(c *cli.Context, st *rpc.VoiceState) error {
		if c.Bool("json") {
			return outputJSON(c.App.Writer, st)
		}
		fmt.Fprintln(c.App.Writer, voiceSummary(*st))
		return nil
	}
	control := func(action, usage string) *cli.Command {
		return &cli.Command{
			Name:  strings.ReplaceAll(action, "_", "-"),
			Usage: usage,
			Action: func(c *cli.Context) error {
				return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
					st, err := cl.Voice.Control(ctx, action)
					if err != nil {
						return friendly(err)
					}
					return printVoice(c, st)
				})
			},
		}
	}

	return &cli.Command{
		Name:  "voice",
		Usage: "control speech input and output",
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				st, err := cl.Voice.State(ctx)
				if err != nil {
					return friendly(err)
				}
				return printVoice(c, st)
			})
		},
		Subcommands: []*cli.Command{
			{
				Name:      "mode",
				Usage:     "set how the microphone activates",
				ArgsUsage: "click|auto|push",
				Action: func(c *cli.Context) error {
					mode := c.Args().First()
					if mode == "" {
						return cli.Exit("usage: charlyctl voice mode click|auto|push", 1)
					}
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						st, err := cl.Voice.SetMode(ctx, mode)
						if err != nil {
							return friendly(err)
						}
						return printVoice(c, st)
					})
				},
			},
			control(rpc.VoiceToggle, "toggle listening"),
			control(rpc.VoiceStart, "start listening"),
			control(rpc.VoiceStop, "stop listening"),
			control(rpc.VoiceStopSpeaking, "interrupt speech output"),
			{
				Name:      "speak",
				Usage:     "read text aloud",
				ArgsUsage: "<text...>",
				Action: func(c *cli.Context) error {
					text := strings.Join(c.Args().Slice(), " ")
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						resp, err := cl.Voice.Speak(ctx, text)
						if err != nil {
							return friendly(err)
						}
						if !resp.Spoken {
							fmt.Fprintln(c.App.Writer, "Nothing to read.")
						}
						return nil
					})
				},
			},
		},
	}
}

func animateCommand() *cli.Command {
	printFrame := func(c *cli.Context, f *rpc.Frame) error {
		if c.Bool("json") {
			return outputJSON(c.App.Writer, f)
		}
		fmt.Fprintf(c.App.Writer, "%s: %s (step %d, playing %t)\n", f.State, f.Animation, f.Step, f.Playing)
		return nil
	}

	return &cli.Command{
		Name:  "animate",
		Usage: "drive the mascot animation",
		Action: func(c *cli.Context) error {
			return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
				f, err := cl.Animation.State(ctx)
				if err != nil {
					return friendly(err)
				}
				return printFrame(c, f)
			})
		},
		Subcommands: []*cli.Command{
			{
				Name:      "play",
				Usage:     "play a named sequence",
				ArgsUsage: "<sequence>",
				Action: func(c *cli.Context) error {
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						f, err := cl.Animation.Play(ctx, c.Args().First())
						if err != nil {
							return friendly(err)
						}
						return printFrame(c, f)
					})
				},
			},
			{
				Name:      "trigger",
				Usage:     "fire a conversation trigger",
				ArgsUsage: "greet|think|process|respond|idle|stop [text]",
				Action: func(c *cli.Context) error {
					req := &rpc.TriggerRequest{
						Action: c.Args().First(),
						Text:   strings.Join(c.Args().Tail(), " "),
					}
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						f, err := cl.Animation.Trigger(ctx, req)
						if err != nil {
							return friendly(err)
						}
						return printFrame(c, f)
					})
				},
			},
			{
				Name:      "flash",
				Usage:     "show one state animation, then return to idle",
				ArgsUsage: "<state>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "hold", Value: 3 * time.Second},
				},
				Action: func(c *cli.Context) error {
					req := &rpc.FlashRequest{State: c.Args().First(), HoldMs: c.Duration("hold").Milliseconds()}
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						f, err := cl.Animation.Flash(ctx, req)
						if err != nil {
							return friendly(err)
						}
						return printFrame(c, f)
					})
				},
			},
			{
				Name:  "sequences",
				Usage: "list the effective animation sequences",
				Action: func(c *cli.Context) error {
					return withClient(c, callTimeout, func(ctx context.Context, cl *client.Client) error {
						resp, err := cl.Animation.Sequences(ctx)
						if err != nil {
							return friendly(err)
						}
						if c.Bool("json") {
							return outputJSON(c.App.Writer, resp)
						}
						printSequences(c.App.Writer, resp)
						return nil
					})
				},
			},
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect the configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "env",
				Usage: "list the environment variables that override config.toml",
				Action: func(c *cli.Context) error {
					return config.Usage()
				},
			},
			{
				Name:  "show",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.LoadWithEnv(profile.ConfigPath())
					if err != nil {
						return err
					}
					if cfg.Voice.OpenAIKey != "" {
						cfg.Voice.OpenAIKey = "********"
					}
					if c.Bool("json") {
						return outputJSON(c.App.Writer, cfg)
					}
					return config.Encode(c.App.Writer, cfg)
				},
			},
			{
				Name:  "init",
				Usage: "write the default config.toml unless one exists",
				Action: func(c *cli.Context) error {
					path := profile.ConfigPath()
					if _, err := os.Stat(path); err == nil {
						return cli.Exit(path+" already exists", 1)
					}
					if err := config.Save(path, config.Default()); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
