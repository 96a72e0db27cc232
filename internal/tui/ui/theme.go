package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	UserColor         tcell.Color
	AssistantColor    tcell.Color
	FavoriteColor     tcell.Color
	FlashInfoColor    tcell.Color
	FlashOKColor      tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	// GlamourStyle is the markdown style matching the background.
	GlamourStyle string
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		UserColor:         tcell.ColorLightSkyBlue,
		AssistantColor:    tcell.ColorPaleGreen,
		FavoriteColor:     tcell.ColorGold,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashOKColor:      tcell.ColorLimeGreen,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
		GlamourStyle:      "dark",
	}
}

// LightTheme returns a theme for light terminals.
func LightTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorWhite,
		FgColor:           tcell.ColorDarkSlateGray,
		BorderColor:       tcell.ColorSteelBlue,
		BorderFocusColor:  tcell.ColorNavy,
		TableHeaderFg:     tcell.ColorBlack,
		TableHeaderBg:     tcell.ColorWhite,
		TableCursorFg:     tcell.ColorWhite,
		TableCursorBg:     tcell.ColorSteelBlue,
		CrumbActiveFg:     tcell.ColorWhite,
		CrumbActiveBg:     tcell.ColorDarkOrange,
		CrumbInactiveFg:   tcell.ColorWhite,
		CrumbInactiveBg:   tcell.ColorSteelBlue,
		MenuKeyColor:      tcell.ColorNavy,
		TitleColor:        tcell.ColorPurple,
		CounterColor:      tcell.ColorSaddleBrown,
		UserColor:         tcell.ColorNavy,
		AssistantColor:    tcell.ColorDarkGreen,
		FavoriteColor:     tcell.ColorDarkGoldenrod,
		FlashInfoColor:    tcell.ColorDarkSlateGray,
		FlashOKColor:      tcell.ColorGreen,
		FlashWarnColor:    tcell.ColorDarkOrange,
		FlashErrColor:     tcell.ColorRed,
		PromptBorderColor: tcell.ColorSteelBlue,
		GlamourStyle:      "light",
	}
}

// ThemeFor picks a theme by its config name; unknown names get the dark one.
func ThemeFor(name string) *Theme {
	if strings.EqualFold(strings.TrimSpace(name), "light") {
		return LightTheme()
	}
	return DefaultTheme()
}
