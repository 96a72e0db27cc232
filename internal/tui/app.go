// Package tui is the terminal front-end of the assistant.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/profile"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/tui/client"
	"github.com/matheus3301/charly/internal/tui/keys"
	"github.com/matheus3301/charly/internal/tui/model"
	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/matheus3301/charly/internal/tui/views"
)

// Page names.
const (
	pageChat    = "chat"
	pageHistory = "history"
	pageDetails = "details"
	pageLogin   = "login"
	pageHelp    = "help"
)

const (
	callTimeout   = 10 * time.Second
	sendTimeout   = 2 * time.Minute
	reconnectWait = 2 * time.Second
)

// Options configures the TUI.
type Options struct {
	Profile string
	Theme   string
	Logger  *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	prompt   *ui.Prompt
	body     *tview.Flex
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	flashBar *ui.FlashBar
	flash    *ui.FlashModel
	info     *ui.SessionInfo
	mascot   *ui.Mascot
	registry *keys.Registry

	chat      *views.ChatView
	historyV  *views.HistoryView
	details   *views.ConversationInfo
	login     *views.LoginView
	help      *views.HelpView
	statusBar *views.StatusBar

	vm      *model.ViewModel
	grpc    *client.Client
	profile string
	logger  *zap.Logger

	promptActive bool
	skipLogin    bool
	lastStatus   status.State

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.ThemeFor(opts.Theme)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(),
		prompt:    ui.NewPrompt(theme),
		crumbs:    ui.NewCrumbs(theme),
		menu:      ui.NewMenu(theme),
		flashBar:  ui.NewFlashBar(theme),
		flash:     ui.NewFlashModel(),
		info:      ui.NewSessionInfo(theme),
		mascot:    ui.NewMascot(theme),
		registry:  keys.NewRegistry(),
		chat:      views.NewChatView(theme),
		historyV:  views.NewHistoryView(theme),
		details:   views.NewConversationInfo(theme),
		login:     views.NewLoginView(theme),
		help:      views.NewHelpView(theme),
		statusBar: views.NewStatusBar(theme),
		vm:        model.NewViewModel(c),
		grpc:      c,
		profile:   opts.Profile,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(opts.Profile)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.help.Update(a.helpSections())
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("voice", &keys.Action{
		Key: tcell.KeyF2, Label: "F2", Description: "Microphone", Visible: true,
		Handler: func() { a.voiceControl(rpc.VoiceToggle) },
	})
	a.registry.AddGlobal("push", &keys.Action{
		Key: tcell.KeyCtrlSpace, Label: "Ctrl+Space", Description: "Push to talk", Visible: true,
		Handler: a.pushToTalk,
	})
	a.registry.AddGlobal("silence", &keys.Action{
		Key: tcell.KeyCtrlX, Label: "Ctrl+X", Description: "Stop speaking",
		Handler: func() { a.voiceControl(rpc.VoiceStopSpeaking) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Description: "Command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddView(pageChat, "send", &keys.Action{
		Key: tcell.KeyCtrlS, Label: "Ctrl+S", Description: "Send", Visible: true,
		Handler: a.chat.Submit,
	})
	a.registry.AddView(pageChat, "focus", &keys.Action{
		Key: tcell.KeyTab, Label: "Tab", Description: "Scroll / type",
		Handler: a.toggleChatFocus,
	})
	a.registry.AddView(pageChat, "type", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Type",
		Handler: func() { a.app.SetFocus(a.chat.Composer()) },
	})
	a.registry.AddView(pageChat, "history", &keys.Action{
		Key: tcell.KeyRune, Rune: 'h', Label: "h", Description: "History", Visible: true,
		Handler: a.showHistory,
	})
	a.registry.AddView(pageChat, "new", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "New conversation", Visible: true,
		Handler: a.newConversation,
	})
	a.registry.AddView(pageChat, "export", &keys.Action{
		Key: tcell.KeyRune, Rune: 'e', Label: "e", Description: "Export", Visible: true,
		Handler: func() { a.export("", "text") },
	})

	a.registry.AddView(pageHistory, "search", &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "Search", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageHistory, "filter", &keys.Action{
		Key: tcell.KeyTab, Label: "Tab", Description: "Next tab", Visible: true,
		Handler: func() {
			a.historyV.SetFilter(views.NextFilter(a.historyV.Filter()))
			a.reloadHistory()
		},
	})
	a.registry.AddView(pageHistory, "favorite", &keys.Action{
		Key: tcell.KeyRune, Rune: 'f', Label: "f", Description: "Favorite", Visible: true,
		Handler: a.toggleFavorite,
	})
	a.registry.AddView(pageHistory, "delete", &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Label: "d", Description: "Delete", Visible: true,
		Handler: a.confirmDelete,
	})
	a.registry.AddView(pageHistory, "export", &keys.Action{
		Key: tcell.KeyRune, Rune: 'e', Label: "e", Description: "Export", Visible: true,
		Handler: func() {
			if id := a.historyV.Selected(); id != "" {
				a.export(id, "text")
			}
		},
	})
	a.registry.AddView(pageHistory, "details", &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Details", Visible: true,
		Handler: a.showDetails,
	})
	a.registry.AddView(pageHistory, "new", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "New conversation", Visible: true,
		Handler: a.newConversation,
	})
}

func (a *App) setupCallbacks() {
	a.chat.SetOnSend(a.send)

	a.historyV.SetSelectedFunc(func(row, _ int) {
		if id := a.historyV.Selected(); id != "" {
			a.open(id)
		}
	})

	a.login.SetOnLogin(a.doLogin)
	a.login.SetOnSkip(func() {
		a.skipLogin = true
		a.resetTo(pageChat)
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.deactivatePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(text)
		case ui.PromptFilter:
			a.historyV.SetQuery(text)
			a.reloadHistory()
		}
	})
	a.prompt.SetOnCancel(a.deactivatePrompt)
	names := make([]string, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, c.Name)
	}
	a.prompt.SetCommands(names)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateMenu()
		a.focusPage()
	})
}

func (a *App) setupLayout() {
	for _, page := range []ui.Page{a.chat, a.historyV, a.details, a.login, a.help} {
		a.pages.Add(page)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(a.mascot, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 24, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 8, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
	a.pages.Reset(pageChat)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.promptActive {
		return event
	}
	page := a.pages.Current()

	if event.Key() == tcell.KeyEscape {
		switch {
		case page == pageLogin:
			a.skipLogin = true
			a.resetTo(pageChat)
			return nil
		case a.pages.Depth() > 1:
			a.pages.Pop()
			return nil
		case a.app.GetFocus() == a.chat.Composer():
			a.app.SetFocus(a.chat.Messages())
			return nil
		}
		return event
	}

	// Text fields keep plain keys; control keys still reach the registry.
	if a.typing() && event.Key() == tcell.KeyRune {
		return event
	}
	if page == pageLogin && event.Key() != tcell.KeyF2 && event.Key() != tcell.KeyCtrlSpace {
		return event
	}
	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

func (a *App) typing() bool {
	switch a.app.GetFocus().(type) {
	case *tview.InputField, *tview.Button:
		return true
	}
	return false
}

func (a *App) push(page string) {
	if a.pages.Current() == page {
		return
	}
	a.pages.Push(page)
}

func (a *App) resetTo(page string) {
	a.pages.Reset(page)
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageChat:
		a.app.SetFocus(a.chat.Composer())
	case pageHistory:
		a.app.SetFocus(a.historyV)
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageLogin:
		a.app.SetFocus(a.login.Form())
	case pageHelp:
		a.app.SetFocus(a.help)
	}
}

func (a *App) toggleChatFocus() {
	if a.app.GetFocus() == a.chat.Composer() {
		a.app.SetFocus(a.chat.Messages())
		return
	}
	a.app.SetFocus(a.chat.Composer())
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	if mode == ui.PromptFilter && a.pages.Current() != pageHistory {
		return
	}
	a.promptActive = true
	a.prompt.Activate(mode)
	a.body.Clear().
		AddItem(a.prompt, 3, 0, true).
		AddItem(a.pages, 0, 1, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) deactivatePrompt() {
	a.promptActive = false
	a.body.Clear().AddItem(a.pages, 0, 1, true)
	a.focusPage()
}

func (a *App) updateMenu() {
	hints := toMenuHints(a.registry.Hints(a.pages.Current()))
	a.menu.Update(append(hints, a.pages.Hints()...))
}

func (a *App) helpSections() []views.HelpSection {
	sections := []views.HelpSection{
		{Title: "Chat", Hints: append(toMenuHints(a.registry.Hints(pageChat)), a.chat.Hints()...)},
		{Title: "History", Hints: append(toMenuHints(a.registry.Hints(pageHistory)), a.historyV.Hints()...)},
		{Title: "Sign in", Hints: a.login.Hints()},
	}

	var cmds []ui.MenuHint
	for _, c := range Commands {
		cmds = append(cmds, ui.MenuHint{Key: c.Usage, Description: c.Help})
	}
	sections = append(sections, views.HelpSection{Title: "Commands", Hints: cmds})
	return sections
}

func toMenuHints(hints []keys.Hint) []ui.MenuHint {
	out := make([]ui.MenuHint, 0, len(hints))
	for _, h := range hints {
		out = append(out, ui.MenuHint{Key: h.Key, Description: h.Description})
	}
	return out
}

// background runs fn off the UI goroutine and flashes its error.
func (a *App) background(timeout time.Duration, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, timeout)
		defer cancel()
		if err := fn(ctx); err != nil && a.ctx.Err() == nil {
			a.flash.Err(err)
		}
	}()
}

func (a *App) send(text string) {
	a.background(sendTimeout, func(ctx context.Context) error {
		resp, err := a.vm.Send(ctx, text)
		if err != nil {
			return err
		}
		if resp.Ignored {
			a.flash.Warn("Type a little more so I can help")
		}
		return nil
	})
}

func (a *App) newConversation() {
	a.background(callTimeout, func(ctx context.Context) error {
		if err := a.vm.NewConversation(ctx); err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.resetTo(pageChat) })
		return nil
	})
}

func (a *App) open(id string) {
	a.background(callTimeout, func(ctx context.Context) error {
		if err := a.vm.Open(ctx, id); err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.resetTo(pageChat) })
		return nil
	})
}

func (a *App) showHistory() {
	a.push(pageHistory)
	a.reloadHistory()
}

func (a *App) reloadHistory() {
	filter, query := a.historyV.Filter(), a.historyV.Query()
	a.background(callTimeout, func(ctx context.Context) error {
		return a.vm.LoadHistory(ctx, filter, query)
	})
}

func (a *App) showDetails() {
	c := a.historyV.Conversation(a.historyV.Selected())
	if c == nil {
		return
	}
	a.details.Update(c)
	a.push(pageDetails)
}

func (a *App) toggleFavorite() {
	id := a.historyV.Selected()
	if id == "" {
		return
	}
	a.background(callTimeout, func(ctx context.Context) error {
		resp, err := a.grpc.History.ToggleFavorite(ctx, id)
		if err != nil {
			return err
		}
		if resp.Favorite {
			a.flash.OK("Added to favorites")
		} else {
			a.flash.Info("Removed from favorites")
		}
		return nil
	})
}

func (a *App) confirmDelete() {
	id := a.historyV.Selected()
	c := a.historyV.Conversation(id)
	if c == nil {
		return
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete %q?", c.Title)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.pages.RemovePage("confirm")
			a.focusPage()
			if label != "Delete" {
				return
			}
			a.background(callTimeout, func(ctx context.Context) error {
				if _, err := a.grpc.History.Delete(ctx, id); err != nil {
					return err
				}
				a.flash.OK("Conversation deleted")
				return nil
			})
		})
	modal.SetBackgroundColor(a.theme.BgColor)
	a.pages.AddPage("confirm", modal, false, true)
	a.app.SetFocus(modal)
}

func (a *App) export(id, format string) {
	a.background(callTimeout, func(ctx context.Context) error {
		resp, err := a.grpc.History.Export(ctx, &rpc.ExportRequest{ID: id, Format: format})
		if err != nil {
			return err
		}
		dir := profile.ExportDir(a.profile)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		path := filepath.Join(dir, resp.Filename)
		if err := os.WriteFile(path, []byte(resp.Content), 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		a.flash.OK("Exported to " + path)
		return nil
	})
}

func (a *App) doLogin(email, password string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		resp, err := a.grpc.Session.Login(ctx, &rpc.LoginRequest{Email: email, Password: password})
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.login.ShowMessage(fmt.Sprintf("[%s]%s[-]", ui.ColorName(a.theme.FlashErrColor), tview.Escape(ui.ErrorText(err))))
				a.login.Reset()
				return
			}
			a.login.ShowMessage("")
			a.login.Reset()
			a.flash.OK("Signed in as " + displayName(resp.User))
			a.resetTo(pageChat)
		})
	}()
}

func displayName(u rpc.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func (a *App) voiceControl(action string) {
	a.background(callTimeout, func(ctx context.Context) error {
		st, err := a.grpc.Voice.Control(ctx, action)
		if err != nil {
			return err
		}
		a.vm.SetVoice(*st)
		return nil
	})
}

// pushToTalk toggles the push-to-talk key; terminals report no key release.
func (a *App) pushToTalk() {
	if a.vm.Voice().PushDown {
		a.voiceControl(rpc.VoicePushEnd)
		return
	}
	a.voiceControl(rpc.VoicePushStart)
}

func (a *App) runCommand(input string) {
	cmd, err := ParseCommand(input).Resolve()
	if err != nil {
		a.flash.Err(err)
		return
	}

	switch cmd.Name {
	case "new":
		a.newConversation()
	case "history":
		a.historyV.SetQuery(cmd.Args)
		a.showHistory()
	case "export":
		format := cmd.Args
		if format == "" {
			format = "text"
		}
		a.export("", format)
	case "mode":
		a.background(callTimeout, func(ctx context.Context) error {
			st, err := a.grpc.Voice.SetMode(ctx, cmd.Args)
			if err != nil {
				return err
			}
			a.vm.SetVoice(*st)
			a.flash.OK("Voice mode: " + st.Mode)
			return nil
		})
	case "memory", "autoread":
		on, err := ParseSwitch(cmd.Args)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.background(callTimeout, func(ctx context.Context) error {
			if cmd.Name == "memory" {
				return a.vm.SetPreferences(ctx, &on, nil)
			}
			return a.vm.SetPreferences(ctx, nil, &on)
		})
	case "speak":
		text := cmd.Args
		if text == "" {
			text = lastReply(a.vm.Current())
		}
		a.background(callTimeout, func(ctx context.Context) error {
			resp, err := a.grpc.Voice.Speak(ctx, text)
			if err != nil {
				return err
			}
			if !resp.Spoken {
				a.flash.Warn("Nothing to read")
			}
			return nil
		})
	case "sync":
		a.background(callTimeout, func(ctx context.Context) error {
			info, err := a.grpc.History.Sync(ctx)
			if err != nil {
				return err
			}
			a.flash.OK(fmt.Sprintf("Loaded %d conversations (%d from your account)", info.Conversations, info.Server))
			return nil
		})
	case "login":
		a.showLogin()
	case "logout":
		a.background(callTimeout, func(ctx context.Context) error {
			resp, err := a.grpc.Session.Logout(ctx)
			if err != nil {
				return err
			}
			a.flash.Info(resp.Message)
			return nil
		})
	case "help":
		a.push(pageHelp)
	case "quit":
		a.Stop()
	}
}

func lastReply(c *rpc.Conversation) string {
	if c == nil {
		return ""
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == history.RoleAssistant {
			return c.Messages[i].Content
		}
	}
	return ""
}

func (a *App) showLogin() {
	if st := a.vm.Status(); st != nil {
		a.login.ShowAccountURL(st.AccountURL)
	}
	a.push(pageLogin)
}

// render copies the view model into the widgets. Must run on the UI goroutine.
func (a *App) render() {
	st := a.vm.Status()
	prefs := a.vm.Preferences()
	voice := a.vm.Voice()
	frame := a.vm.Frame()

	if st != nil {
		data := &ui.SessionData{
			Profile:       st.Profile,
			Status:        st.Status,
			VoiceMode:     voice.Mode,
			Memory:        prefs.MemoryEnabled,
			AutoRead:      prefs.AutoRead,
			Conversations: st.Conversations,
			Messages:      st.Messages,
			Uptime:        time.Duration(st.UptimeMs) * time.Millisecond,
		}
		if st.User != nil {
			data.User = displayName(*st.User)
		}
		a.info.Update(data)
		a.statusBar.SetStatus(st.Status)
		a.onStatus(status.State(st.Status))
	}
	a.statusBar.SetVoice(voice)
	a.statusBar.SetFrame(frame)
	a.mascot.Update(frame.State, frame.Animation, frame.Playing)

	a.chat.SetConversation(a.vm.Current())
	query, sources := a.vm.Sources()
	a.chat.SetSources(query, sources)
	a.chat.SetPending(a.vm.Pending())
	a.chat.SetTranscript(a.vm.Transcript())
	a.historyV.Update(a.vm.History())
}

// onStatus shows the login page when the account needs credentials.
func (a *App) onStatus(s status.State) {
	if s == a.lastStatus {
		return
	}
	prev := a.lastStatus
	a.lastStatus = s
	switch s {
	case status.SessionExpired:
		a.flash.Warn("Your session expired, please sign in again")
		a.skipLogin = false
		a.showLogin()
	case status.SignedOut:
		if !a.skipLogin && prev != status.SigningIn {
			a.showLogin()
		}
	case status.Offline:
		a.flash.Warn("Can't reach the server; conversations stay on this computer")
	}
}

// watch keeps one event stream open, reconnecting until the app stops.
func (a *App) watch(name string, open func(ctx context.Context) (*rpc.EventReceiver, error)) {
	for a.ctx.Err() == nil {
		recv, err := open(a.ctx)
		if err == nil {
			a.setConnected(true)
			err = a.consume(recv)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Debug("event stream closed", zap.String("stream", name), zap.Error(err))
		a.setConnected(false)

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
		if err := a.refresh(); err != nil {
			a.logger.Debug("refresh after reconnect failed", zap.Error(err))
		}
	}
}

func (a *App) consume(recv *rpc.EventReceiver) error {
	for {
		ev, err := recv.Recv()
		if err != nil {
			return err
		}
		reload, err := a.vm.ApplyEvent(ev)
		if err != nil {
			a.logger.Warn("bad event", zap.String("kind", ev.Kind), zap.Error(err))
			continue
		}
		if reload {
			go func() {
				if err := a.refresh(); err != nil {
					a.logger.Debug("refresh failed", zap.Error(err))
				}
			}()
		}
	}
}

func (a *App) setConnected(connected bool) {
	a.app.QueueUpdateDraw(func() { a.statusBar.SetConnected(connected) })
}

// refresh reloads everything the view model caches.
func (a *App) refresh() error {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		return err
	}
	if err := a.vm.LoadPreferences(ctx); err != nil {
		return err
	}
	if err := a.vm.LoadCurrent(ctx); err != nil {
		return err
	}
	return a.vm.LoadHistory(ctx, a.historyV.Filter(), a.historyV.Query())
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		if err := a.refresh(); err != nil {
			a.flash.Err(err)
		}
	}()
	go a.watch("chat", func(ctx context.Context) (*rpc.EventReceiver, error) { return a.grpc.Chat.Watch(ctx) })
	go a.watch("session", func(ctx context.Context) (*rpc.EventReceiver, error) { return a.grpc.Session.Watch(ctx) })
	go a.watch("animation", func(ctx context.Context) (*rpc.EventReceiver, error) { return a.grpc.Animation.Watch(ctx) })
	go a.loop()

	return a.app.Run()
}

func (a *App) loop() {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	statusTick := time.NewTicker(30 * time.Second)
	defer statusTick.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case msg := <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(&msg) })
		case <-tick.C:
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.GetMessage()) })
		case <-statusTick.C:
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			_ = a.vm.LoadStatus(ctx)
			cancel()
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
