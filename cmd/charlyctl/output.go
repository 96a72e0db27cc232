package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/charly/internal/rpc"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// friendly strips the gRPC code prefix from daemon errors.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s", st.Message())
	}
	return err
}

func printStatus(w io.Writer, s *rpc.StatusResponse) {
	user := "-"
	if s.User != nil {
		user = fmt.Sprintf("%s <%s>", s.User.Name, s.User.Email)
	}
	lastSync := "never"
	if s.LastSync != nil {
		lastSync = fmt.Sprintf("%s (%d conversations, %d from the server)",
			humanize.Time(time.UnixMilli(s.LastSync.AtUnixMs)), s.LastSync.Conversations, s.LastSync.Server)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Profile:\t%s\n", s.Profile)
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "User:\t%s\n", user)
	fmt.Fprintf(tw, "API:\t%s\n", s.APIURL)
	fmt.Fprintf(tw, "PID:\t%d\n", s.PID)
	fmt.Fprintf(tw, "Uptime:\t%s\n", (time.Duration(s.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(tw, "History:\t%d conversations, %s messages\n", s.Conversations, humanize.Comma(int64(s.Messages)))
	fmt.Fprintf(tw, "Last sync:\t%s\n", lastSync)
	fmt.Fprintf(tw, "Voice:\t%s\n", voiceSummary(s.Voice))
	fmt.Fprintf(tw, "Mascot:\t%s (%s)\n", s.Animation.State, s.Animation.Animation)
	_ = tw.Flush()
}

func voiceSummary(v rpc.VoiceState) string {
	parts := []string{v.Mode}
	if v.Backend != "" {
		parts = append(parts, "backend "+v.Backend)
	}
	for _, f := range []struct {
		on   bool
		name string
	}{
		{v.Listening, "listening"},
		{v.Muted, "muted"},
		{v.Speaking, "speaking"},
	} {
		if f.on {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ", ")
}

func printConversations(w io.Writer, convs []rpc.Conversation, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "No conversations found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMSGS\tSOURCE\tUPDATED")
	for _, c := range convs {
		title := runewidth.Truncate(c.Title, 48, "…")
		if c.Favorite {
			title = "★ " + title
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.ID, title, len(c.Messages), c.Source,
			humanize.RelTime(time.UnixMilli(c.UpdatedAt), now, "ago", "from now"))
	}
	_ = tw.Flush()
}

func printConversation(w io.Writer, c *rpc.Conversation) {
	fmt.Fprintf(w, "%s\n%s\n\n", c.Title, strings.Repeat("=", runewidth.StringWidth(c.Title)))
	for _, m := range c.Messages {
		who := "Charly"
		if m.Role == "user" {
			who = "You"
		}
		stamp := ""
		if m.Timestamp != 0 {
			stamp = " (" + time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04") + ")"
		}
		fmt.Fprintf(w, "%s%s:\n%s\n\n", who, stamp, m.Content)
	}
}

func printReply(w io.Writer, r *rpc.SendResponse) {
	if r.Ignored {
		fmt.Fprintln(w, "(message too short, nothing sent)")
		return
	}
	fmt.Fprintln(w, r.Message.Content)
	if r.SearchQuery != "" && len(r.SearchResults) > 0 {
		fmt.Fprintf(w, "\nSources for %q:\n", r.SearchQuery)
		for _, s := range r.SearchResults {
			fmt.Fprintf(w, "  - %s <%s>\n", s.Title, s.URL)
		}
	}
}

func printSequences(w io.Writer, resp *rpc.SequencesResponse) {
	names := make([]string, 0, len(resp.Sequences))
	for name := range resp.Sequences {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var steps []string
		for _, s := range resp.Sequences[name] {
			steps = append(steps, fmt.Sprintf("%s %s", s.Animation, time.Duration(s.DurationMs)*time.Millisecond))
		}
		fmt.Fprintf(w, "%-11s %s\n", name, strings.Join(steps, " → "))
	}
	if len(resp.Missing) > 0 {
		fmt.Fprintf(w, "\nmissing animation files: %s\n", strings.Join(resp.Missing, ", "))
	}
}
