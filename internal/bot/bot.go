package bot

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/config"
	"github.com/savolbot/savolbot/internal/results"
	"github.com/savolbot/savolbot/internal/session"
	"github.com/savolbot/savolbot/internal/storage"
)

const helpText = "Commands:\n" +
	"/start — pick a test\n" +
	"/results — your recent results\n" +
	"/help — this message\n" +
	"Admins: send a .json document to import tests."

// Bot is the Telegram transport over the session engine. It owns the
// per-user conversation state (which test is awaiting a custom question
// count); the persisted quiz session state stays in the engine.
type Bot struct {
	tb      *tele.Bot
	cfg     config.Config
	store   *catalog.SQLStore
	engine  *session.Engine
	reader  *results.Reader
	archive *storage.Archive

	mu      sync.Mutex
	pending map[int64]int64 // userID -> testID awaiting a custom count
}

func New(cfg config.Config, store *catalog.SQLStore, engine *session.Engine,
	reader *results.Reader, archive *storage.Archive) (*Bot, error) {

	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: time.Duration(cfg.PollTimeoutSec) * time.Second},
	})
	if err != nil {
		return nil, err
	}

	b := &Bot{
		tb:      tb,
		cfg:     cfg,
		store:   store,
		engine:  engine,
		reader:  reader,
		archive: archive,
		pending: make(map[int64]int64),
	}

	tb.Handle("/start", b.onStart)
	tb.Handle("/help", b.onHelp)
	tb.Handle("/results", b.onResults)
	tb.Handle(tele.OnDocument, b.onDocument)
	tb.Handle(tele.OnText, b.onCustomNumber)
	tb.Handle(tele.OnCallback, b.onCallback)

	return b, nil
}

// Start begins long polling and blocks until Stop is called.
func (b *Bot) Start() { b.tb.Start() }

func (b *Bot) Stop() { b.tb.Stop() }

func (b *Bot) onStart(c tele.Context) error {
	ctx := context.Background()
	tests, err := b.store.ListTests(ctx)
	if err != nil {
		return c.Send("Something went wrong, try again later.")
	}
	if len(tests) == 0 {
		return c.Send("No tests yet. An admin has to upload a JSON document first. See /help.")
	}
	if err := c.Send("Pick a test:", testsKeyboard(tests)); err != nil {
		return err
	}
	s, err := b.engine.Active(ctx, c.Sender().ID)
	if err != nil {
		// Best-effort: the test list is already out, only the Resume
		// shortcut is lost.
		log.Printf("active session lookup: %v", err)
		return nil
	}
	if s != nil {
		return c.Send("You have a quiz in progress.", &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{
				{{Text: "Resume", Data: "resume:" + s.ID}},
			},
		})
	}
	return nil
}

func (b *Bot) onHelp(c tele.Context) error {
	return c.Send(helpText)
}

func (b *Bot) onResults(c tele.Context) error {
	list, err := b.reader.Recent(context.Background(), c.Sender().ID, 10)
	if err != nil {
		return c.Send("Something went wrong, try again later.")
	}
	return c.Send(resultsText(list))
}

// onDocument imports an admin-uploaded tests document. Non-admins and
// non-JSON documents are ignored on purpose.
func (b *Bot) onDocument(c tele.Context) error {
	if !b.cfg.IsAdmin(c.Sender().ID) {
		return nil
	}
	doc := c.Message().Document
	if doc == nil || !strings.HasSuffix(strings.ToLower(doc.FileName), ".json") {
		return nil
	}
	rc, err := b.tb.File(&doc.File)
	if err != nil {
		return c.Reply("Download failed: " + err.Error())
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return c.Reply("Download failed: " + err.Error())
	}

	n, err := b.store.Import(context.Background(), data)
	if err != nil {
		return c.Reply("Import failed: " + err.Error())
	}
	if _, err := b.archive.Save(doc.FileName, data); err != nil {
		log.Printf("archive import: %v", err)
	}
	return c.Reply("Imported " + strconv.Itoa(n) + " tests.")
}

// onCustomNumber consumes a numeric message only when the user previously
// tapped "Other" on the count keyboard.
func (b *Bot) onCustomNumber(c tele.Context) error {
	userID := c.Sender().ID
	b.mu.Lock()
	testID, ok := b.pending[userID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || count < 0 {
		return c.Reply("Send a number.")
	}
	b.mu.Lock()
	delete(b.pending, userID)
	b.mu.Unlock()
	return b.startSession(c, userID, testID, count, false)
}

func (b *Bot) onCallback(c tele.Context) error {
	action, args := parseCallback(c.Callback().Data)
	switch action {
	case "choose_test":
		return b.onChooseTest(c, args)
	case "count":
		return b.onChooseCount(c, args)
	case "count_custom":
		return b.onChooseCustom(c, args)
	case "ans":
		return b.onAnswer(c, args)
	case "stop":
		return b.onStopQuiz(c, args)
	case "resume":
		return b.onResume(c, args)
	}
	return c.Respond(&tele.CallbackResponse{Text: "Unknown action."})
}

func (b *Bot) onChooseTest(c tele.Context, args []string) error {
	testID, err := argInt64(args, 0)
	if err != nil {
		return respondError(c)
	}
	questions, err := b.store.Questions(context.Background(), testID)
	if err != nil {
		return respondError(c)
	}
	total := len(questions)
	if err := c.Edit("How many questions? (Total: "+strconv.Itoa(total)+")",
		countKeyboard(testID, total)); err != nil {
		return err
	}
	return c.Respond()
}

func (b *Bot) onChooseCount(c tele.Context, args []string) error {
	testID, err := argInt64(args, 0)
	if err != nil {
		return respondError(c)
	}
	count, err := argInt(args, 1)
	if err != nil {
		return respondError(c)
	}
	if err := b.startSession(c, c.Sender().ID, testID, count, true); err != nil {
		return err
	}
	return c.Respond()
}

func (b *Bot) onChooseCustom(c tele.Context, args []string) error {
	testID, err := argInt64(args, 0)
	if err != nil {
		return respondError(c)
	}
	b.mu.Lock()
	b.pending[c.Sender().ID] = testID
	b.mu.Unlock()
	if err := c.Edit("Send a number (how many questions)?"); err != nil {
		return err
	}
	return c.Respond()
}

// sessionStarter is the slice of the engine the start flow needs.
type sessionStarter interface {
	Active(ctx context.Context, userID int64) (*session.Session, error)
	Stop(ctx context.Context, sessionID string) error
	Create(ctx context.Context, userID, testID int64, requested int) (string, error)
}

// beginSession enforces the single-active-session contract the engine
// leaves to its callers: any existing active session is stopped
// immediately before the new one is created. A storage failure at any of
// the three steps aborts the start; in particular a failed Active lookup
// must never fall through to Create, or the user ends up with two active
// sessions.
func beginSession(ctx context.Context, eng sessionStarter, userID, testID int64, count int) (string, error) {
	old, err := eng.Active(ctx, userID)
	if err != nil {
		return "", err
	}
	if old != nil {
		if err := eng.Stop(ctx, old.ID); err != nil {
			return "", err
		}
	}
	return eng.Create(ctx, userID, testID, count)
}

func (b *Bot) startSession(c tele.Context, userID, testID int64, count int, edit bool) error {
	sessionID, err := beginSession(context.Background(), b.engine, userID, testID, count)
	if errors.Is(err, session.ErrNoQuestions) {
		return send(c, edit, "This test has no questions yet.", nil)
	}
	if err != nil {
		return send(c, edit, "Something went wrong, try again later.", nil)
	}
	return b.renderStep(c, sessionID, 0, edit)
}

func (b *Bot) onAnswer(c tele.Context, args []string) error {
	if len(args) != 3 {
		return respondError(c)
	}
	sessionID := args[0]
	index, errIdx := argInt(args, 1)
	optionID, errOpt := argInt64(args, 2)
	if errIdx != nil || errOpt != nil {
		return respondError(c)
	}

	ctx := context.Background()
	q, err := b.engine.QuestionAt(ctx, sessionID, index)
	if err != nil {
		return respondError(c)
	}
	if q == nil {
		return c.Respond(&tele.CallbackResponse{Text: "No such step."})
	}

	ok, err := b.engine.RecordAnswer(ctx, sessionID, q.ID, optionID)
	if err != nil {
		return respondError(c)
	}
	feedback := "✅ Correct!"
	if !ok {
		feedback = "❌ Wrong."
		if corr, err := b.store.CorrectOption(ctx, q.ID); err == nil && corr != nil {
			feedback = "❌ Wrong. Correct answer: " + corr.Text
		}
	}
	if err := c.Respond(&tele.CallbackResponse{Text: feedback}); err != nil {
		return err
	}

	done, err := b.engine.FinishIfDone(ctx, sessionID)
	if err != nil {
		return err
	}
	if done {
		s, err := b.engine.Get(ctx, sessionID)
		if err != nil || s == nil {
			return c.Edit("Quiz finished. /start")
		}
		return c.Edit(scoreText("Quiz finished.", s.CorrectCount, s.TotalAnswered))
	}
	return b.renderStep(c, sessionID, index+1, true)
}

func (b *Bot) onStopQuiz(c tele.Context, args []string) error {
	if len(args) != 1 {
		return respondError(c)
	}
	sessionID := args[0]
	ctx := context.Background()
	if err := b.engine.Stop(ctx, sessionID); err != nil {
		return respondError(c)
	}
	s, err := b.engine.Get(ctx, sessionID)
	if err != nil || s == nil {
		return c.Edit("Stopped. /start")
	}
	if err := c.Edit(scoreText("Stopped.", s.CorrectCount, s.TotalAnswered)); err != nil {
		return err
	}
	return c.Respond()
}

func (b *Bot) onResume(c tele.Context, args []string) error {
	if len(args) != 1 {
		return respondError(c)
	}
	ctx := context.Background()
	s, err := b.engine.Get(ctx, args[0])
	if err != nil {
		return respondError(c)
	}
	if s == nil || s.Terminal() {
		return c.Respond(&tele.CallbackResponse{Text: "Session not found.", ShowAlert: true})
	}
	if err := b.renderStep(c, s.ID, s.CurrentIndex, true); err != nil {
		return err
	}
	return c.Respond()
}

// renderStep shows the question at index, or a completion notice when the
// step does not exist.
func (b *Bot) renderStep(c tele.Context, sessionID string, index int, edit bool) error {
	ctx := context.Background()
	q, err := b.engine.QuestionAt(ctx, sessionID, index)
	if err != nil {
		return send(c, edit, "Something went wrong, try again later.", nil)
	}
	if q == nil {
		return send(c, edit, "Quiz finished. /start", nil)
	}
	opts, err := b.store.Options(ctx, q.ID)
	if err != nil {
		return send(c, edit, "Something went wrong, try again later.", nil)
	}
	s, err := b.engine.Get(ctx, sessionID)
	if err != nil || s == nil {
		return send(c, edit, "Session not found. /start", nil)
	}
	text, kb := questionMessage(sessionID, index, len(s.QuestionIDs), q, opts)
	return send(c, edit, text, kb)
}

func send(c tele.Context, edit bool, text string, kb *tele.ReplyMarkup) error {
	if edit {
		if kb != nil {
			return c.Edit(text, kb)
		}
		return c.Edit(text)
	}
	if kb != nil {
		return c.Send(text, kb)
	}
	return c.Send(text)
}

func respondError(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: "Error.", ShowAlert: true})
}

func argInt64(args []string, i int) (int64, error) {
	if i >= len(args) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(args[i], 10, 64)
}

func argInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(args[i])
}
