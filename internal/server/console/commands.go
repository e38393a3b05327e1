package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/server/authgate"
)

var (
	errUsage       = errors.New("usage")
	errNeedSession = errors.New("no session")
	errNeedCode    = errors.New("code required")
)

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

const helpText = `Commands:
  /newnote <text>                       save a note
  /mynotes                              list your notes
  /delnote <id>                         delete a note
  /newreminder <HH:MM> <text> [--recurrent]
                                        set a reminder, daily with --recurrent
  /myreminders                          list pending reminders
  /delreminder <id>                     delete a reminder
  /setup2fa                             enrol an authenticator app
  /2facode                              show the current 2FA code
  /disable2fa                           remove two-factor authentication
  /settings [es|en|pt]                  show settings or change language
  /consent [yes|no]                     data processing consent
  /clearall confirm                     erase all your data
  /help                                 this text`

func (c *Console) dispatch(ctx context.Context, cmd, arg string) (string, error) {
	switch cmd {
	case "/start":
		return c.start(ctx)
	case "/code":
		return c.code(ctx, arg)
	case "/help":
		return helpText, nil
	}

	uid, err := c.authenticated(ctx)
	if err != nil {
		return "", err
	}

	switch cmd {
	case "/newnote":
		return c.newNote(ctx, uid, arg)
	case "/mynotes":
		return c.myNotes(ctx, uid)
	case "/delnote":
		return c.delNote(ctx, uid, arg)
	case "/newreminder":
		return c.newReminder(ctx, uid, arg)
	case "/myreminders":
		return c.myReminders(ctx, uid)
	case "/delreminder":
		return c.delReminder(ctx, uid, arg)
	case "/setup2fa":
		return c.setup2FA(ctx, uid)
	case "/2facode":
		return c.show2FACode(ctx, uid)
	case "/disable2fa":
		return c.disable2FA(ctx, uid)
	case "/settings":
		return c.settings(ctx, uid, arg)
	case "/consent":
		return c.consent(ctx, uid, arg)
	case "/clearall":
		return c.clearAll(ctx, uid, arg)
	default:
		return "", usage("unknown command %q, see /help", cmd)
	}
}

func (c *Console) authenticated(ctx context.Context) (int64, error) {
	uid, err := c.user(ctx)
	if err != nil {
		return 0, err
	}
	switch c.gate.Session(uid) {
	case authgate.Authenticated:
		return uid, nil
	case authgate.AwaitingCode:
		return 0, errNeedCode
	default:
		return 0, errNeedSession
	}
}

func (c *Console) start(ctx context.Context) (string, error) {
	uid, err := c.user(ctx)
	if err != nil {
		return "", err
	}
	st, err := c.gate.StartSession(ctx, uid)
	if err != nil {
		return "", err
	}
	if st == authgate.AwaitingCode {
		return "🔐 Two-factor authentication is on. Enter your code with /code <digits>.", nil
	}

	var b strings.Builder
	b.WriteString("👋 Welcome to RecoNotas!\n")
	if c.greet() {
		b.WriteString("Your notes are stored encrypted. Use /consent to accept data processing.\n")
	}
	b.WriteString(helpText)
	return b.String(), nil
}

func (c *Console) code(ctx context.Context, arg string) (string, error) {
	if arg == "" {
		return "", usage("/code <digits>")
	}
	uid, err := c.user(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.gate.SubmitCode(ctx, uid, arg); err != nil {
		return "", err
	}
	return "✅ Authenticated.\n" + helpText, nil
}

func parseID(arg, cmd string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usage("%s <id>", cmd)
	}
	return id, nil
}

func (c *Console) newNote(ctx context.Context, uid int64, text string) (string, error) {
	if text == "" {
		return "", usage("/newnote <text>")
	}
	n, err := c.store.AddNote(ctx, uid, text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Note #%d saved.", n.ID), nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "…"
}

func (c *Console) myNotes(ctx context.Context, uid int64) (string, error) {
	notes, err := c.store.ListNotes(ctx, uid)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "📭 You have no notes.", nil
	}

	var b strings.Builder
	b.WriteString("📝 Your notes:")
	for _, n := range notes {
		if n.Err != nil {
			fmt.Fprintf(&b, "\n#%d ⚠️ unreadable", n.ID)
			continue
		}
		fmt.Fprintf(&b, "\n#%d %s (%s)", n.ID, preview(n.Content), n.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String(), nil
}

func (c *Console) delNote(ctx context.Context, uid int64, arg string) (string, error) {
	id, err := parseID(arg, "/delnote")
	if err != nil {
		return "", err
	}
	ok, err := c.store.DeleteNote(ctx, id, uid)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("❌ Note #%d not found.", id), nil
	}
	return fmt.Sprintf("🗑 Note #%d deleted.", id), nil
}

func (c *Console) newReminder(ctx context.Context, uid int64, arg string) (string, error) {
	fields := strings.Fields(arg)
	recurring := false
	if n := len(fields); n > 0 && fields[n-1] == "--recurrent" {
		recurring = true
		fields = fields[:n-1]
	}
	if len(fields) < 2 {
		return "", usage("/newreminder <HH:MM> <text> [--recurrent]")
	}

	rem, err := c.store.AddReminder(ctx, uid, strings.Join(fields[1:], " "), fields[0], recurring)
	if err != nil {
		return "", err
	}
	if err := c.scheduler.Schedule(ctx, c.externalID, rem.TimeOfDay, rem.Text, rem.ID, rem.Recurring); err != nil {
		return "", err
	}

	if recurring {
		return fmt.Sprintf("⏰ Reminder #%d set every day at %s.", rem.ID, rem.TimeOfDay), nil
	}
	return fmt.Sprintf("⏰ Reminder #%d set for %s.", rem.ID, rem.TimeOfDay), nil
}

func (c *Console) myReminders(ctx context.Context, uid int64) (string, error) {
	rems, err := c.store.ListPendingReminders(ctx, uid)
	if err != nil {
		return "", err
	}
	if len(rems) == 0 {
		return "📭 You have no pending reminders.", nil
	}

	var b strings.Builder
	b.WriteString("⏰ Your reminders:")
	for _, r := range rems {
		fmt.Fprintf(&b, "\n#%d %s %s", r.ID, r.TimeOfDay, r.Text)
		if r.Recurring {
			b.WriteString(" (daily)")
		}
	}
	return b.String(), nil
}

func (c *Console) delReminder(ctx context.Context, uid int64, arg string) (string, error) {
	id, err := parseID(arg, "/delreminder")
	if err != nil {
		return "", err
	}
	ok, err := c.store.DeleteReminder(ctx, id, uid)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("❌ Reminder #%d not found.", id), nil
	}
	c.scheduler.Cancel(ctx, c.externalID, id)
	return fmt.Sprintf("🗑 Reminder #%d deleted.", id), nil
}

func (c *Console) setup2FA(ctx context.Context, uid int64) (string, error) {
	e, err := c.gate.Enroll(ctx, uid, strconv.FormatInt(c.externalID, 10))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔐 2FA enabled. Add this key to your authenticator app:\n%s\n%s\nCheck it with /2facode.",
		e.Secret, e.ProvisioningURI), nil
}

func (c *Console) show2FACode(ctx context.Context, uid int64) (string, error) {
	code, left, err := c.gate.CurrentCode(ctx, uid)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔢 Current code: %s (valid for %ds)", code, int(left.Seconds())), nil
}

func (c *Console) disable2FA(ctx context.Context, uid int64) (string, error) {
	ok, err := c.gate.Disable(ctx, uid)
	if err != nil {
		return "", err
	}
	if !ok {
		return "ℹ️ 2FA was not enabled.", nil
	}
	return "🔓 2FA disabled.", nil
}

func (c *Console) settings(ctx context.Context, uid int64, lang string) (string, error) {
	if lang == "" {
		u, err := c.store.GetUser(ctx, uid)
		if err != nil {
			return "", err
		}
		consent := "not given"
		if u.GDPRConsent {
			consent = "given"
		}
		return fmt.Sprintf("⚙️ Language: %s\nData processing consent: %s\nMember since %s\nChange the language with /settings <es|en|pt>.",
			u.Language, consent, u.RegisteredAt.Format("2006-01-02")), nil
	}
	if err := c.store.SetLanguage(ctx, uid, strings.ToLower(lang)); err != nil {
		return "", err
	}
	return fmt.Sprintf("⚙️ Language set to %s.", strings.ToLower(lang)), nil
}

func (c *Console) consent(ctx context.Context, uid int64, arg string) (string, error) {
	var consent bool
	switch strings.ToLower(arg) {
	case "", "yes", "y", "si", "sí":
		consent = true
	case "no", "n":
		consent = false
	default:
		return "", usage("/consent [yes|no]")
	}
	if err := c.store.SetConsent(ctx, uid, consent); err != nil {
		return "", err
	}
	if consent {
		return "✅ Consent recorded.", nil
	}
	return "✅ Consent withdrawn.", nil
}

func (c *Console) clearAll(ctx context.Context, uid int64, arg string) (string, error) {
	if arg != "confirm" {
		return "⚠️ This erases all your notes, reminders and settings. Send /clearall confirm to proceed.", nil
	}

	rems, err := c.store.ListPendingReminders(ctx, uid)
	if err != nil {
		return "", err
	}
	if _, err := c.store.DeleteUser(ctx, uid); err != nil {
		return "", err
	}
	for _, r := range rems {
		c.scheduler.Cancel(ctx, c.externalID, r.ID)
	}
	c.gate.EndSession(uid)
	c.forgetUser()
	return "🧹 All your data has been erased. Send /start to begin again.", nil
}
