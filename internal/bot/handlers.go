package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/scan"
	"github.com/alnkravchenko/tracking-bot/internal/store"
	"github.com/alnkravchenko/tracking-bot/internal/workflow"
)

const helpText = `Commands:
/take — check out equipment (send label photos, then /ok)
/ok — finish scanning and ask admins for confirmation
/cancel — abandon the current flow
/return — return everything you hold to the storehouse
/mine — list equipment you currently hold
/categories [name] — browse equipment by category
/equipment — show an item's history (by label photo)
/history [@handle or id] — show a person's history
/period — show history for a date range`

// Bot implements the chat flows on top of the workflow engine. It holds no
// custody state of its own; sessions only track where each requester is in a
// conversation.
type Bot struct {
	db        *sql.DB
	engine    *workflow.Engine
	resolver  *scan.Resolver
	messenger Messenger
	sessions  *sessionTable
}

// New creates the bot.
func New(db *sql.DB, engine *workflow.Engine, resolver *scan.Resolver, messenger Messenger) *Bot {
	return &Bot{
		db:        db,
		engine:    engine,
		resolver:  resolver,
		messenger: messenger,
		sessions:  newSessionTable(),
	}
}

// Handle processes one inbound update. The dispatcher guarantees updates for
// the same chat arrive here one at a time, in order.
func (b *Bot) Handle(ctx context.Context, u Update) error {
	person, err := store.GetPerson(ctx, b.db, u.ChatID)
	if err != nil {
		return fmt.Errorf("looking up person: %w", err)
	}
	if person == nil {
		return b.handleNewcomer(ctx, u)
	}
	if !person.IsVerified() {
		return b.messenger.Send(ctx, u.ChatID, "Your access request is still waiting for an admin.")
	}

	switch {
	case u.Callback != "":
		return b.handleCallback(ctx, person, u.Callback)
	case u.Photo != nil:
		return b.handlePhoto(ctx, person, u.Photo)
	default:
		return b.handleText(ctx, person, strings.TrimSpace(u.Text))
	}
}

// handleNewcomer registers an unknown account as unverified and asks every
// admin to approve or reject it.
func (b *Bot) handleNewcomer(ctx context.Context, u Update) error {
	name := u.Name
	if name == "" {
		name = strconv.FormatInt(u.ChatID, 10)
	}

	person, err := store.CreatePerson(ctx, b.db, u.ChatID, name, u.Handle, model.RoleUnverified)
	if err != nil {
		return fmt.Errorf("registering newcomer: %w", err)
	}
	slog.Info("newcomer registered", "person", person.Name, "id", person.ID)

	if err := b.messenger.Send(ctx, u.ChatID, "Your access request was sent to the admins."); err != nil {
		return err
	}

	admins, err := b.engine.Admins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	buttons := []Button{
		{Text: "\u2705", Data: fmt.Sprintf("verify:ok:%d", person.ID)},
		{Text: "\u274C", Data: fmt.Sprintf("verify:no:%d", person.ID)},
	}
	text := fmt.Sprintf("Approve access for %s?", mention(person))
	for _, admin := range admins {
		if err := b.messenger.SendButtons(ctx, admin.ID, text, buttons); err != nil {
			slog.Error("verification prompt failed", "admin", admin.ID, "error", err)
		}
	}
	return nil
}

func (b *Bot) handleText(ctx context.Context, person *model.Person, text string) error {
	sess := b.sessions.get(person.ID)
	command := text
	if i := strings.IndexByte(text, ' '); i > 0 {
		command = text[:i]
	}

	switch command {
	case "/start", "/help":
		b.sessions.drop(person.ID)
		return b.messenger.Send(ctx, person.ID, helpText)

	case "/take":
		// A new checkout discards any unfinished batch.
		if sess.batchID != "" {
			if _, err := b.engine.Cancel(ctx, sess.batchID); err != nil {
				return fmt.Errorf("discarding previous batch: %w", err)
			}
		}
		sess.state = stateCollecting
		sess.batchID = uuid.NewString()
		sess.scanned = make(map[int64]bool)
		return b.messenger.Send(ctx, person.ID,
			"Send a photo of each item's label, one code per photo. Send /ok when you have everything.")

	case "/ok":
		if sess.state != stateCollecting {
			return b.messenger.Send(ctx, person.ID, "Start a checkout with /take first.")
		}
		if len(sess.scanned) == 0 {
			return b.messenger.Send(ctx, person.ID, "You haven't scanned anything yet.")
		}
		sess.state = stateAwaitingDecision
		if err := b.messenger.Send(ctx, person.ID, "Waiting for admin confirmation."); err != nil {
			return err
		}
		return b.requestConfirmation(ctx, person, sess.batchID)

	case "/cancel":
		if sess.batchID != "" {
			if _, err := b.engine.Cancel(ctx, sess.batchID); err != nil {
				return fmt.Errorf("cancelling batch: %w", err)
			}
		}
		b.sessions.drop(person.ID)
		return b.messenger.Send(ctx, person.ID, "Cancelled.")

	case "/return":
		return b.handleReturn(ctx, person)

	case "/mine":
		held, err := store.ListEquipment(ctx, b.db, 0, person.ID)
		if err != nil {
			return fmt.Errorf("listing held equipment: %w", err)
		}
		return b.messenger.Send(ctx, person.ID, formatHeldEquipment(ctx, b.db, held))

	case "/categories":
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/categories"))
		return b.sendCategories(ctx, person.ID, arg)

	case "/equipment":
		sess.state = stateAwaitHistoryScan
		return b.messenger.Send(ctx, person.ID, "Send a photo of the item's label.")

	case "/history":
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/history"))
		if arg == "" {
			sess.state = stateAwaitPersonRef
			return b.messenger.Send(ctx, person.ID, "Send a handle (@name) or an account id.")
		}
		return b.sendPersonHistory(ctx, person.ID, arg)

	case "/period":
		sess.state = stateAwaitPeriod
		return b.messenger.Send(ctx, person.ID,
			"Send the start and end dates, each as dd.mm.yyyy, on separate lines.")
	}

	switch sess.state {
	case stateAwaitPersonRef:
		b.sessions.drop(person.ID)
		return b.sendPersonHistory(ctx, person.ID, text)
	case stateAwaitPeriod:
		b.sessions.drop(person.ID)
		return b.sendPeriodHistory(ctx, person.ID, text)
	}

	return b.messenger.Send(ctx, person.ID, helpText)
}

func (b *Bot) handlePhoto(ctx context.Context, person *model.Person, photo []byte) error {
	sess := b.sessions.get(person.ID)

	switch sess.state {
	case stateCollecting:
		return b.handleScan(ctx, person, sess, photo)
	case stateAwaitHistoryScan:
		return b.handleHistoryScan(ctx, person, photo)
	default:
		return b.messenger.Send(ctx, person.ID, "Start a checkout with /take first.")
	}
}

// handleScan resolves one label photo during collection and stages a
// transfer for it. A failed scan or an unknown item affects only this photo;
// the batch and the session continue unchanged.
func (b *Bot) handleScan(ctx context.Context, person *model.Person, sess *session, photo []byte) error {
	equipmentID, err := b.resolver.Resolve(ctx, photo)
	if errors.Is(err, scan.ErrUnrecognized) {
		return b.messenger.Send(ctx, person.ID, "Couldn't read the code. Try another photo.")
	}
	if err != nil {
		return fmt.Errorf("resolving scan: %w", err)
	}

	// Scanning the same label twice in one batch is ignored.
	if sess.scanned[equipmentID] {
		return nil
	}

	transfer, err := b.engine.Open(ctx, equipmentID, person.ID, sess.batchID)
	switch {
	case errors.Is(err, workflow.ErrEquipmentNotFound):
		return b.messenger.Send(ctx, person.ID, "This item is not in the database.")
	case errors.Is(err, workflow.ErrConflictingPending):
		return b.messenger.Send(ctx, person.ID, "This item is unavailable right now.")
	case err != nil:
		return fmt.Errorf("opening transfer: %w", err)
	}

	sess.scanned[equipmentID] = true
	return b.messenger.Send(ctx, person.ID, transfer.EquipmentName)
}

func (b *Bot) handleHistoryScan(ctx context.Context, person *model.Person, photo []byte) error {
	equipmentID, err := b.resolver.Resolve(ctx, photo)
	if errors.Is(err, scan.ErrUnrecognized) {
		return b.messenger.Send(ctx, person.ID, "Couldn't read the code. Try another photo.")
	}
	if err != nil {
		return fmt.Errorf("resolving scan: %w", err)
	}

	b.sessions.drop(person.ID)

	equipment, err := store.GetEquipment(ctx, b.db, equipmentID)
	if err != nil {
		return fmt.Errorf("looking up equipment: %w", err)
	}
	if equipment == nil {
		return b.messenger.Send(ctx, person.ID, "This item is not in the database.")
	}

	entries, err := store.HistoryForEquipment(ctx, b.db, equipmentID)
	if err != nil {
		return fmt.Errorf("loading equipment history: %w", err)
	}
	if len(entries) == 0 {
		return b.messenger.Send(ctx, person.ID, fmt.Sprintf("%s has no history yet.", equipment.Name))
	}
	return b.messenger.Send(ctx, person.ID,
		fmt.Sprintf("History of %s:\n%s", equipment.Name, formatHistory(entries)))
}

// requestConfirmation fans one approve/reject prompt per admin, each
// carrying the requester's whole batch. Any single admin's first click
// resolves the batch for everyone.
func (b *Bot) requestConfirmation(ctx context.Context, requester *model.Person, batchID string) error {
	pending, err := store.PendingByBatch(ctx, b.db, batchID)
	if err != nil {
		return fmt.Errorf("loading batch: %w", err)
	}

	names := make([]string, 0, len(pending))
	for _, t := range pending {
		names = append(names, t.EquipmentName)
	}
	text := fmt.Sprintf("Confirm equipment transfer to %s:\n%s",
		mention(requester), strings.Join(names, "\n"))
	buttons := []Button{
		{Text: "\u2705", Data: fmt.Sprintf("checkout:approve:%s:%d", batchID, requester.ID)},
		{Text: "\u274C", Data: fmt.Sprintf("checkout:reject:%s:%d", batchID, requester.ID)},
	}

	admins, err := b.engine.Admins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	for _, admin := range admins {
		if err := b.messenger.SendButtons(ctx, admin.ID, text, buttons); err != nil {
			slog.Error("confirmation prompt failed", "admin", admin.ID, "error", err)
		}
	}
	return nil
}

func (b *Bot) handleReturn(ctx context.Context, person *model.Person) error {
	b.sessions.drop(person.ID)

	report, err := b.engine.ReturnAll(ctx, person.ID)
	if err != nil {
		return fmt.Errorf("returning equipment: %w", err)
	}
	if len(report.Resolved) == 0 && len(report.Failed) == 0 {
		return b.messenger.Send(ctx, person.ID, "You are not holding any equipment.")
	}

	admins, err := b.engine.Admins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	notice := formatReport(fmt.Sprintf("%s returned:", mention(person)), report)
	for _, admin := range admins {
		if err := b.messenger.Send(ctx, admin.ID, notice); err != nil {
			slog.Error("return notice failed", "admin", admin.ID, "error", err)
		}
	}

	return b.messenger.Send(ctx, person.ID,
		formatReport("Returned to the storehouse:", report))
}

func (b *Bot) handleCallback(ctx context.Context, person *model.Person, data string) error {
	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return fmt.Errorf("malformed callback %q", data)
	}

	switch parts[0] {
	case "checkout":
		if len(parts) != 4 {
			return fmt.Errorf("malformed checkout callback %q", data)
		}
		requesterID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed requester id in callback %q", data)
		}
		return b.resolveCheckout(ctx, person, parts[2], requesterID, parts[1] == "approve")

	case "verify":
		personID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed person id in callback %q", data)
		}
		return b.resolveVerification(ctx, person, personID, parts[1] == "ok")
	}

	return fmt.Errorf("unknown callback %q", data)
}

// resolveCheckout applies an admin's decision to a batch. The engine
// guarantees only the first decision takes effect; later clicks are answered
// with a notice instead of re-running the commit.
func (b *Bot) resolveCheckout(ctx context.Context, admin *model.Person, batchID string, requesterID int64, approve bool) error {
	report, err := b.engine.Resolve(ctx, batchID, admin.ID, approve)
	switch {
	case errors.Is(err, workflow.ErrBatchResolved):
		return b.messenger.Send(ctx, admin.ID, "Another admin already handled this request.")
	case errors.Is(err, workflow.ErrNotAuthorized):
		return b.messenger.Send(ctx, admin.ID, "Only admins can confirm transfers.")
	case err != nil:
		return fmt.Errorf("resolving batch: %w", err)
	}

	b.sessions.drop(requesterID)

	if approve {
		if err := b.messenger.Send(ctx, requesterID,
			formatReport("Your checkout was approved:", report)); err != nil {
			return err
		}
	} else {
		if err := b.messenger.Send(ctx, requesterID, "Your checkout was rejected."); err != nil {
			return err
		}
	}
	return b.messenger.Send(ctx, admin.ID, "Done.")
}

func (b *Bot) resolveVerification(ctx context.Context, admin *model.Person, personID int64, approve bool) error {
	if !admin.IsAdmin() {
		return b.messenger.Send(ctx, admin.ID, "Only admins can verify users.")
	}

	if !approve {
		if err := b.messenger.Send(ctx, personID, "The admins declined your access request."); err != nil {
			return err
		}
		return b.messenger.Send(ctx, admin.ID, "Declined.")
	}

	if _, err := b.engine.Verify(ctx, personID); err != nil {
		return fmt.Errorf("verifying person: %w", err)
	}
	if err := b.messenger.Send(ctx, personID,
		"You've been granted access. Send /start to begin."); err != nil {
		return err
	}
	return b.messenger.Send(ctx, admin.ID, "Approved.")
}

// sendCategories lists all categories, or the equipment in one category with
// each item's current holder.
func (b *Bot) sendCategories(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		categories, err := store.ListCategories(ctx, b.db)
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}
		if len(categories) == 0 {
			return b.messenger.Send(ctx, chatID, "No categories yet.")
		}
		var sb strings.Builder
		sb.WriteString("Categories:")
		for _, c := range categories {
			fmt.Fprintf(&sb, "\n%s", c.Name)
		}
		sb.WriteString("\n\nSend /categories <name> to see the equipment.")
		return b.messenger.Send(ctx, chatID, sb.String())
	}

	category, err := store.GetCategoryByName(ctx, b.db, name)
	if err != nil {
		return fmt.Errorf("looking up category: %w", err)
	}
	if category == nil {
		return b.messenger.Send(ctx, chatID, fmt.Sprintf("No category named %q.", name))
	}

	items, err := store.ListEquipment(ctx, b.db, category.ID, 0)
	if err != nil {
		return fmt.Errorf("listing category equipment: %w", err)
	}
	if len(items) == 0 {
		return b.messenger.Send(ctx, chatID, fmt.Sprintf("%s is empty.", category.Name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:", category.Name)
	for _, eq := range items {
		fmt.Fprintf(&sb, "\n%s — %s", eq.Name, eq.HolderName)
	}
	return b.messenger.Send(ctx, chatID, sb.String())
}

func (b *Bot) sendPersonHistory(ctx context.Context, chatID int64, ref string) error {
	var person *model.Person
	var err error

	if strings.HasPrefix(ref, "@") {
		person, err = store.GetPersonByHandle(ctx, b.db, strings.TrimPrefix(ref, "@"))
	} else {
		id, parseErr := strconv.ParseInt(ref, 10, 64)
		if parseErr != nil {
			return b.messenger.Send(ctx, chatID, "Send a handle (@name) or a numeric account id.")
		}
		person, err = store.GetPerson(ctx, b.db, id)
	}
	if err != nil {
		return fmt.Errorf("looking up person: %w", err)
	}
	if person == nil {
		return b.messenger.Send(ctx, chatID, fmt.Sprintf("No account found for %s.", ref))
	}

	entries, err := store.HistoryForHolder(ctx, b.db, person.ID)
	if err != nil {
		return fmt.Errorf("loading holder history: %w", err)
	}
	if len(entries) == 0 {
		return b.messenger.Send(ctx, chatID, fmt.Sprintf("History of %s is empty.", mention(person)))
	}
	return b.messenger.Send(ctx, chatID,
		fmt.Sprintf("History of %s:\n%s", mention(person), formatHistory(entries)))
}

func (b *Bot) sendPeriodHistory(ctx context.Context, chatID int64, text string) error {
	from, to, err := parsePeriod(text)
	if err != nil {
		return b.messenger.Send(ctx, chatID,
			"Couldn't read the dates. Send both as dd.mm.yyyy, start date first.")
	}

	entries, err := store.HistoryForPeriod(ctx, b.db, from, to)
	if err != nil {
		return fmt.Errorf("loading period history: %w", err)
	}
	if len(entries) == 0 {
		return b.messenger.Send(ctx, chatID, fmt.Sprintf("History from %s to %s is empty.",
			from.Format("02.01.2006"), to.Format("02.01.2006")))
	}
	return b.messenger.Send(ctx, chatID, fmt.Sprintf("History from %s to %s:\n%s",
		from.Format("02.01.2006"), to.Format("02.01.2006"), formatHistory(entries)))
}
