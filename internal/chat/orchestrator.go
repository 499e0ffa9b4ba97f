// internal/chat/orchestrator.go
// Package chat orchestrates a single conversation with a Foundry Local model:
// it owns the visible records, rebuilds request history on every call, and
// splits oversized text attachments into sequential chunked requests.
package chat

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/inference"
	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/tokens"
	"github.com/mwiater/foundrychat/internal/transport"
)

var (
	// ErrBusy is returned when a send is already in flight.
	ErrBusy = errors.New("a message is already being sent")
	// ErrNoModel is returned when no model has been selected.
	ErrNoModel = errors.New("no model selected")
	// ErrContextOverflow is returned when a chunked send has no budget left.
	ErrContextOverflow = errors.New("context too full to send chunks")
	// ErrRecordNotFound is returned when a record id is unknown.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNotTruncated is returned when continuing a reply that was not cut off.
	ErrNotTruncated = errors.New("record is not a truncated reply")
)

const (
	contextFullMessage = "Context is too full to send chunks. Please clear chat."
	continuePrompt     = "Please continue your previous response."

	ackTemperature   = 0.1
	replyTemperature = 0.4

	sendMaxTokens     = 1024
	continueMaxTokens = 512
	fallbackMaxTokens = 512
)

// Completer is the inference surface the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, req inference.ChatRequest) transport.Result[inference.ChatResponse]
	Stream(ctx context.Context, req inference.ChatRequest, onChunk func(inference.ChatChunk) error) *transport.ErrorInfo
}

// Options tune an Orchestrator. The zero value is usable.
type Options struct {
	// Stream delivers replies incrementally.
	Stream bool
	// Format produces a record's Display text. Nil leaves text unchanged.
	Format func(string) string
	// Sampling is copied into every request.
	Sampling appconfig.Sampling
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Orchestrator runs one conversation. All methods are safe for concurrent
// use, but only one send or continue runs at a time.
type Orchestrator struct {
	client Completer
	opts   Options

	mu         sync.Mutex
	input      string
	attachment *Attachment
	model      *catalog.ActiveModel
	records    []Record
	sending    bool
	tokens     int
	overBudget bool
	observers  []Observer
}

// New returns an Orchestrator that sends through client.
func New(client Completer, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	o := &Orchestrator{client: client, opts: opts}
	o.recompute()
	return o
}

// Subscribe registers an observer for every subsequent Change.
func (o *Orchestrator) Subscribe(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		Input:           o.input,
		Records:         slices.Clone(o.records),
		Sending:         o.sending,
		EstimatedTokens: o.tokens,
		OverBudget:      o.overBudget,
	}
	if o.attachment != nil {
		a := *o.attachment
		s.Attachment = &a
	}
	if o.model != nil {
		m := *o.model
		s.Model = &m
	}
	return s
}

// mutate runs fn under the lock, recomputes derived fields when an input to
// the token estimate changed, and notifies observers after unlocking.
func (o *Orchestrator) mutate(fn func() []Field) {
	o.mu.Lock()
	changed := fn()
	if len(changed) == 0 {
		o.mu.Unlock()
		return
	}
	var derived []Field
	for _, f := range changed {
		if f != FieldSending {
			o.recompute()
			derived = []Field{FieldTokens, FieldOverBudget}
			break
		}
	}
	change := Change{Snapshot: o.snapshotLocked(), Changed: changed, Derived: derived}
	observers := slices.Clone(o.observers)
	o.mu.Unlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (o *Orchestrator) recompute() {
	in := tokens.Inputs{Input: o.input}
	for _, r := range o.records {
		in.History = append(in.History, r.Text)
	}
	if o.attachment != nil {
		in.Attachment = o.attachment.Text
		in.HasImage = o.attachment.IsImage()
	}
	o.tokens = tokens.Total(in)
	o.overBudget = o.model != nil && tokens.OverBudget(o.tokens, o.model.MaxInputTokens)
}

// SetInput replaces the pending message text.
func (o *Orchestrator) SetInput(text string) {
	o.mutate(func() []Field {
		o.input = text
		return []Field{FieldInput}
	})
}

// IsImageFile reports whether name is attached as an image.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// AttachFile sets the pending attachment, replacing any previous one. Image
// files keep their bytes; anything else is attached as text.
func (o *Orchestrator) AttachFile(name string, data []byte) {
	o.mutate(func() []Field {
		if IsImageFile(name) {
			o.attachment = &Attachment{Name: name, Image: slices.Clone(data)}
		} else {
			o.attachment = &Attachment{Name: name, Text: string(data)}
		}
		return []Field{FieldAttachment}
	})
}

// RemoveAttachment drops the pending attachment.
func (o *Orchestrator) RemoveAttachment() {
	o.mutate(func() []Field {
		o.attachment = nil
		return []Field{FieldAttachment}
	})
}

// SelectModel chooses the model for subsequent requests. Nil deselects.
func (o *Orchestrator) SelectModel(m *catalog.ActiveModel) {
	o.mutate(func() []Field {
		if m == nil {
			o.model = nil
		} else {
			c := *m
			o.model = &c
		}
		return []Field{FieldModel}
	})
}

// ClearChat removes every record.
func (o *Orchestrator) ClearChat() {
	o.mutate(func() []Field {
		o.records = nil
		return []Field{FieldRecords}
	})
}

// History builds the request messages for the current records, stopping
// after the record with limitID when it is non-empty.
func (o *Orchestrator) History(limitID string) []inference.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return BuildHistory(o.records, limitID)
}

// SendMessage sends the pending input and attachment. Blank input is a no-op.
// A text attachment that pushes the estimate past the model's input limit is
// delivered in chunks. Request failures become error records, not errors.
func (o *Orchestrator) SendMessage(ctx context.Context) error {
	return o.send(ctx, true)
}

func (o *Orchestrator) send(ctx context.Context, allowChunks bool) error {
	var (
		err        error
		proceed    bool
		chunked    bool
		input      string
		attachment *Attachment
		model      catalog.ActiveModel
	)
	o.mutate(func() []Field {
		if o.sending {
			err = ErrBusy
			return nil
		}
		if strings.TrimSpace(o.input) == "" {
			return nil
		}
		if o.model == nil {
			err = ErrNoModel
			return nil
		}
		proceed = true
		model = *o.model
		chunked = allowChunks && hasTextAttachment(o.attachment) &&
			tokens.OverBudget(o.tokens, model.MaxInputTokens)
		if chunked {
			return nil
		}

		input, attachment = o.input, o.attachment
		o.input, o.attachment = "", nil
		o.sending = true

		text := input
		var image []byte
		if attachment != nil {
			if attachment.IsImage() {
				image = attachment.Image
			} else if attachment.Text != "" {
				text += FileBlock(attachment.Name, attachment.Text)
			}
		}
		o.records = append(o.records, o.newRecord(text, true, image))
		return []Field{FieldInput, FieldAttachment, FieldRecords, FieldSending}
	})
	if err != nil || !proceed {
		return err
	}
	if chunked {
		return o.SendChunkedMessage(ctx)
	}
	defer o.finishSending()

	logging.LogEvent("chat send: model=%s", model.ID)
	o.perform(ctx, model, replyTemperature)
	return nil
}

// SendChunkedMessage splits the pending text attachment into chunks sized to
// the remaining context and sends them one at a time. The final chunk carries
// the pending input as its instruction. A failed chunk stops the sequence;
// chunks already delivered stay in the conversation. Without a non-empty text
// attachment the input is sent as a plain message.
func (o *Orchestrator) SendChunkedMessage(ctx context.Context) error {
	var (
		err      error
		plain    bool
		model    catalog.ActiveModel
		chunks   []string
		fileName string
		input    string
	)
	o.mutate(func() []Field {
		if o.sending {
			err = ErrBusy
			return nil
		}
		if o.model == nil {
			err = ErrNoModel
			return nil
		}
		if !hasTextAttachment(o.attachment) {
			plain = true
			return nil
		}
		model = *o.model
		input = o.input
		fileName = o.attachment.Name
		text := o.attachment.Text
		o.input, o.attachment = "", nil

		history := make([]string, 0, len(o.records))
		for _, r := range o.records {
			history = append(history, r.Text)
		}
		plan, planErr := PlanChunks(model.MaxInputTokens, history)
		if planErr != nil {
			err = planErr
			o.records = append(o.records, o.errorRecord(contextFullMessage))
			return []Field{FieldInput, FieldAttachment, FieldRecords}
		}
		chunks = SplitChunks(text, plan.ChunkChars)
		o.sending = true
		return []Field{FieldInput, FieldAttachment, FieldSending}
	})
	if err != nil {
		return err
	}
	if plain {
		return o.send(ctx, false)
	}
	defer o.finishSending()

	logging.LogEvent("chat chunked send: model=%s file=%s chunks=%d", model.ID, fileName, len(chunks))
	for i, chunk := range chunks {
		last := i == len(chunks)-1
		prompt := ChunkPrompt(i, len(chunks), fileName, chunk, input)
		o.mutate(func() []Field {
			r := o.newRecord(prompt, true, nil)
			r.Display = prompt
			o.records = append(o.records, r)
			return []Field{FieldRecords}
		})

		temperature := ackTemperature
		if last {
			temperature = replyTemperature
		}
		if !o.perform(ctx, model, temperature) {
			logging.LogEvent("chat chunked send: stopped after part %d/%d", i+1, len(chunks))
			break
		}
	}
	return nil
}

// ContinueMessage asks the model to extend the truncated reply with id. The
// new text is appended to that record in place; elapsed time and usage
// accumulate.
func (o *Orchestrator) ContinueMessage(ctx context.Context, id string) error {
	var (
		err   error
		model catalog.ActiveModel
		req   inference.ChatRequest
	)
	o.mutate(func() []Field {
		if o.sending {
			err = ErrBusy
			return nil
		}
		if o.model == nil {
			err = ErrNoModel
			return nil
		}
		idx := o.indexOf(id)
		if idx < 0 {
			err = ErrRecordNotFound
			return nil
		}
		if r := o.records[idx]; r.IsUser || r.IsError || !r.IsTruncated {
			err = ErrNotTruncated
			return nil
		}
		model = *o.model
		history := BuildHistory(o.records, id)
		history = append(history, inference.Message{Role: inference.RoleUser, Content: inference.Content{Text: continuePrompt}})
		req = o.newRequest(model, history, continueMaxTokens, replyTemperature)
		o.sending = true
		return []Field{FieldSending}
	})
	if err != nil {
		return err
	}
	defer o.finishSending()

	logging.LogEvent("chat continue: model=%s record=%s", model.ID, id)
	start := o.opts.Now()
	res := o.client.Complete(ctx, req)
	elapsed := o.opts.Now().Sub(start)
	if !res.IsSuccess() {
		o.appendError(res.Err())
		return nil
	}
	resp := res.Value()
	if len(resp.Choices) == 0 {
		return nil
	}
	choice := resp.Choices[0]
	o.mutate(func() []Field {
		idx := o.indexOf(id)
		if idx < 0 {
			return nil
		}
		r := &o.records[idx]
		r.Text += choice.Message.Content.String()
		r.Display = o.format(r.Text)
		r.IsTruncated = choice.FinishReason == inference.FinishLength
		r.Elapsed += elapsed
		r.Usage = addUsage(r.Usage, resp.Usage)
		r.UsageText = continueUsageText(r.Usage)
		return []Field{FieldRecords}
	})
	return nil
}

func hasTextAttachment(a *Attachment) bool {
	return a != nil && !a.IsImage() && a.Text != ""
}

// perform sends the current history and appends the reply or an error
// record. It reports whether a reply arrived.
func (o *Orchestrator) perform(ctx context.Context, model catalog.ActiveModel, temperature float64) bool {
	req := o.newRequest(model, o.History(""), sendMaxTokens, temperature)
	if o.opts.Stream {
		return o.performStream(ctx, req)
	}

	start := o.opts.Now()
	res := o.client.Complete(ctx, req)
	elapsed := o.opts.Now().Sub(start)
	if !res.IsSuccess() {
		o.appendError(res.Err())
		return false
	}
	resp := res.Value()
	if len(resp.Choices) == 0 {
		return true
	}

	choice := resp.Choices[0]
	o.mutate(func() []Field {
		r := o.newRecord(choice.Message.Content.String(), false, nil)
		r.IsTruncated = choice.FinishReason == inference.FinishLength
		r.Elapsed = elapsed
		r.Usage = resp.Usage
		r.UsageText = sendUsageText(resp.Usage)
		o.records = append(o.records, r)
		return []Field{FieldRecords}
	})
	return true
}

// performStream is perform for streamed replies. The assistant record is
// created on the first delta and grows with each one.
func (o *Orchestrator) performStream(ctx context.Context, req inference.ChatRequest) bool {
	start := o.opts.Now()
	id := ""
	var finish string
	var usage *inference.Usage

	info := o.client.Stream(ctx, req, func(chunk inference.ChatChunk) error {
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil {
			finish = *choice.FinishReason
		}
		if choice.Delta.Content == "" && id != "" {
			return nil
		}
		o.mutate(func() []Field {
			if idx := o.indexOf(id); idx >= 0 {
				r := &o.records[idx]
				r.Text += choice.Delta.Content
				r.Display = o.format(r.Text)
				r.Elapsed = o.opts.Now().Sub(start)
				return []Field{FieldRecords}
			}
			r := o.newRecord(choice.Delta.Content, false, nil)
			r.Elapsed = o.opts.Now().Sub(start)
			id = r.ID
			o.records = append(o.records, r)
			return []Field{FieldRecords}
		})
		return nil
	})
	if info != nil {
		o.appendError(info)
		return false
	}

	o.mutate(func() []Field {
		idx := o.indexOf(id)
		if idx < 0 {
			return nil
		}
		r := &o.records[idx]
		r.IsTruncated = finish == inference.FinishLength
		r.Elapsed = o.opts.Now().Sub(start)
		r.Usage = usage
		r.UsageText = sendUsageText(usage)
		return []Field{FieldRecords}
	})
	return true
}

func (o *Orchestrator) newRequest(model catalog.ActiveModel, history []inference.Message, limit int, temperature float64) inference.ChatRequest {
	maxTokens := fallbackMaxTokens
	if model.MaxOutputTokens > 0 {
		maxTokens = min(model.MaxOutputTokens, limit)
	}
	s := o.opts.Sampling
	return inference.ChatRequest{
		Model:            model.ID,
		Messages:         history,
		Temperature:      &temperature,
		MaxTokens:        &maxTokens,
		TopP:             s.TopP,
		PresencePenalty:  s.PresencePenalty,
		FrequencyPenalty: s.FrequencyPenalty,
		Stop:             s.Stop,
	}
}

func (o *Orchestrator) newRecord(text string, isUser bool, image []byte) Record {
	return Record{
		ID:        o.opts.NewID(),
		Text:      text,
		Display:   o.format(text),
		IsUser:    isUser,
		Timestamp: o.opts.Now(),
		Image:     image,
	}
}

func (o *Orchestrator) errorRecord(text string) Record {
	r := o.newRecord(text, false, nil)
	r.Display = text
	r.IsError = true
	return r
}

// appendError records a failed request. Unexpected failures carry the
// underlying error text.
func (o *Orchestrator) appendError(info *transport.ErrorInfo) {
	text := "Error: " + info.Message
	if info.Kind == transport.KindUnexpected && info.Details != "" {
		text = "Exception: " + info.Details
	}
	logging.LogEvent("chat request failed: %s", info.Error())
	o.mutate(func() []Field {
		o.records = append(o.records, o.errorRecord(text))
		return []Field{FieldRecords}
	})
}

func (o *Orchestrator) finishSending() {
	o.mutate(func() []Field {
		o.sending = false
		return []Field{FieldSending}
	})
}

func (o *Orchestrator) format(text string) string {
	if o.opts.Format == nil {
		return text
	}
	return o.opts.Format(text)
}

func (o *Orchestrator) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(o.records, func(r Record) bool { return r.ID == id })
}
