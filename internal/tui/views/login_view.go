package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/rivo/tview"
)

// LoginView asks for the account credentials and shows a QR code linking to
// the account page for signing up.
type LoginView struct {
	*tview.Flex
	theme   *ui.Theme
	form    *tview.Form
	qr      *tview.TextView
	message *tview.TextView
	onLogin func(email, password string)
	onSkip  func()
}

// NewLoginView creates the login page.
func NewLoginView(theme *ui.Theme) *LoginView {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(theme.TableHeaderBg)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetButtonTextColor(theme.BgColor)

	qr := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	qr.SetBorder(true)
	qr.SetBorderColor(theme.BorderColor)
	qr.SetBackgroundColor(theme.BgColor)
	qr.SetTextColor(theme.FgColor)
	qr.SetTitle(" No account yet? ")
	qr.SetTitleColor(theme.TitleColor)

	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	lv := &LoginView{
		theme:   theme,
		form:    form,
		qr:      qr,
		message: message,
	}

	form.AddInputField("Email", "", 40, nil, nil)
	form.AddPasswordField("Password", "", 40, '*', nil)
	form.AddButton("Sign in", lv.submit)
	form.AddButton("Continue offline", func() {
		if lv.onSkip != nil {
			lv.onSkip()
		}
	})

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(form, 9, 0, true).
		AddItem(message, 0, 1, false)
	lv.Flex = tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(qr, 0, 1, false)
	return lv
}

// Name implements ui.Page.
func (lv *LoginView) Name() string { return "login" }

// Hints implements ui.Page.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Sign in"},
		{Key: "Esc", Description: "Continue offline"},
	}
}

// SetOnLogin sets the callback for submitted credentials.
func (lv *LoginView) SetOnLogin(fn func(email, password string)) {
	lv.onLogin = fn
}

// SetOnSkip sets the callback for continuing without an account.
func (lv *LoginView) SetOnSkip(fn func()) {
	lv.onSkip = fn
}

// Form returns the credentials form (for focus management).
func (lv *LoginView) Form() *tview.Form {
	return lv.form
}

func (lv *LoginView) submit() {
	email := lv.form.GetFormItemByLabel("Email").(*tview.InputField).GetText()
	password := lv.form.GetFormItemByLabel("Password").(*tview.InputField).GetText()
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		lv.ShowMessage(fmt.Sprintf("[%s]Email and password are required[-]", ui.ColorName(lv.theme.FlashWarnColor)))
		return
	}
	lv.ShowMessage("Signing in…")
	if lv.onLogin != nil {
		lv.onLogin(email, password)
	}
}

// Reset clears the password, keeping the email.
func (lv *LoginView) Reset() {
	lv.form.GetFormItemByLabel("Password").(*tview.InputField).SetText("")
	lv.form.SetFocus(0)
}

// ShowMessage displays a status line under the form. msg may carry tview
// color tags.
func (lv *LoginView) ShowMessage(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, "\n%s", msg)
}

// ShowAccountURL renders the sign-up link as text and as a QR code.
func (lv *LoginView) ShowAccountURL(url string) {
	lv.qr.Clear()
	if url == "" {
		return
	}
	_, _ = fmt.Fprintf(lv.qr, "\nCreate an account at\n[::u]%s[-:-:-]\n\n%s", tview.Escape(url), renderQR(url))
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top && !bot:
				sb.WriteRune('▀')
			case !top && bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
