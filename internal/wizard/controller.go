package wizard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/common/validation"
	"cpq-console/internal/models"
)

// Submitter sends the composite payloads to the backend.
type Submitter interface {
	CreateOpportunity(ctx context.Context, p WorkflowPayload) (models.Opportunity, error)
	UpdatePricing(ctx context.Context, opportunityID string, p PricingUpdatePayload) (models.Opportunity, error)
}

// DeferredSubmitter is a Submitter that only hands the payload on. A nil
// error means the submission was accepted, not that the opportunity was
// written.
type DeferredSubmitter interface {
	Submitter
	Deferred() bool
}

func isDeferred(s Submitter) bool {
	d, ok := s.(DeferredSubmitter)
	return ok && d.Deferred()
}

// Notification is the user-visible outcome of a submit.
type Notification struct {
	Level         string `json:"level"`
	Message       string `json:"message"`
	OpportunityID string `json:"opportunityId,omitempty"`
}

const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notifier publishes submit outcomes beyond the session itself.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// Submission describes one submit attempt for the journal.
type Submission struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	Mode          string        `json:"mode"`
	OpportunityID string        `json:"opportunityId,omitempty"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	Payload       interface{}   `json:"payload,omitempty"`
	Duration      time.Duration `json:"duration"`
	At            time.Time     `json:"at"`
}

// Recorder stores submit attempts.
type Recorder interface {
	Record(ctx context.Context, s Submission) error
}

const (
	ModeCreate = "create"
	ModeEdit   = "edit"
)

// Options configure a Wizard. Submitter is required.
type Options struct {
	SessionID string
	// OpportunityID switches the wizard to edit mode.
	OpportunityID string
	// Initial replaces the default form, used for edit sessions.
	Initial    *FormState
	References *References
	Drafts     DraftStore
	Submitter  Submitter
	Notifier   Notifier
	Recorder   Recorder
	// NewCustomerSalesCycleTypeID is the sales cycle type that requires an
	// inline account.
	NewCustomerSalesCycleTypeID string
	Clock                       func() time.Time
	Logger                      logger.Logger
}

// Wizard is one wizard session. It is safe for concurrent use.
type Wizard struct {
	id            string
	editMode      bool
	opportunityID string
	newCustomerID string
	refs          *References
	drafts        DraftStore
	submitter     Submitter
	notifier      Notifier
	recorder      Recorder
	clock         func() time.Time
	logger        logger.Logger

	// initial is the form a reset returns to.
	initial FormState

	mu           sync.Mutex
	step         int
	form         FormState
	dirty        bool
	touched      map[string]bool
	showAll      bool
	completed    bool
	notification *Notification
	updatedAt    time.Time
}

// New starts a session. Outside edit mode a stored draft replaces the
// default form.
func New(ctx context.Context, opts Options) (*Wizard, error) {
	if opts.Submitter == nil {
		return nil, errors.NewInternalError("wizard requires a submitter")
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.References == nil {
		opts.References = &References{}
	}

	editMode := opts.OpportunityID != ""
	w := &Wizard{
		id:            opts.SessionID,
		editMode:      editMode,
		opportunityID: opts.OpportunityID,
		newCustomerID: opts.NewCustomerSalesCycleTypeID,
		refs:          opts.References,
		drafts:        GateDraftStore(editMode, opts.Drafts),
		submitter:     opts.Submitter,
		notifier:      opts.Notifier,
		recorder:      opts.Recorder,
		clock:         opts.Clock,
		logger: opts.Logger.WithFields(map[string]interface{}{
			"component": "wizard",
			"sessionId": opts.SessionID,
			"mode":      modeName(editMode),
		}),
		form:      DefaultFormState(),
		touched:   map[string]bool{},
		updatedAt: opts.Clock(),
	}
	if opts.Initial != nil {
		w.form = opts.Initial.Clone()
	}
	if editMode {
		w.initial = w.form.Clone()
	} else {
		w.initial = DefaultFormState()
	}

	draft, err := w.drafts.Load(ctx)
	if err != nil {
		w.logger.Warn("Draft could not be restored", map[string]interface{}{"error": err.Error()})
	} else if draft != nil {
		w.form = draft.Clone()
		w.logger.Info("Draft restored", nil)
	}
	return w, nil
}

func modeName(editMode bool) string {
	if editMode {
		return ModeEdit
	}
	return ModeCreate
}

func (w *Wizard) ID() string { return w.id }

func (w *Wizard) EditMode() bool { return w.editMode }

func (w *Wizard) References() *References { return w.refs }

// LastActivity is when the session last changed.
func (w *Wizard) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

// Snapshot is the externally visible session state. Errors only cover
// touched fields; StepValid reflects the current step regardless.
type Snapshot struct {
	SessionID     string            `json:"sessionId"`
	EditMode      bool              `json:"editMode"`
	OpportunityID string            `json:"opportunityId,omitempty"`
	Step          int               `json:"step"`
	StepName      string            `json:"stepName"`
	Form          FormState         `json:"form"`
	Dirty         bool              `json:"dirty"`
	Errors        map[string]string `json:"errors"`
	StepValid     bool              `json:"stepValid"`
	CanGoBack     bool              `json:"canGoBack"`
	Completed     bool              `json:"completed"`
	Notification  *Notification     `json:"notification,omitempty"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot(w.validate())
}

func (w *Wizard) snapshot(full *validation.Result) Snapshot {
	visible := full
	if !w.showAll {
		visible = full.Only(w.touchedFields()...)
	}
	var note *Notification
	if w.notification != nil {
		n := *w.notification
		note = &n
	}
	return Snapshot{
		SessionID:     w.id,
		EditMode:      w.editMode,
		OpportunityID: w.opportunityID,
		Step:          w.step,
		StepName:      StepName(w.step),
		Form:          w.form.Clone(),
		Dirty:         w.dirty,
		Errors:        visible.FieldMessages(),
		StepValid:     StepErrors(full, w.step).Valid,
		CanGoBack:     w.step > 0,
		Completed:     w.completed,
		Notification:  note,
	}
}

func (w *Wizard) touchedFields() []string {
	out := make([]string, 0, len(w.touched))
	for f := range w.touched {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (w *Wizard) validationContext() Context {
	return w.refs.ValidationContext(w.editMode, w.clock(), w.newCustomerID)
}

func (w *Wizard) validate() *validation.Result {
	return Validate(w.form, w.validationContext())
}

// Update applies fn to the form, marks the given field paths as touched and
// autosaves the draft.
func (w *Wizard) Update(ctx context.Context, fn func(f *FormState), touched ...string) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.form.Clone()
	fn(&next)
	w.form = next
	w.dirty = true
	w.completed = false
	w.updatedAt = w.clock()
	for _, f := range touched {
		w.touched[validation.NormalizePath(f)] = true
	}
	w.autosave(ctx)
	return w.snapshot(w.validate())
}

// Replace swaps in a whole form, as sent by a client that keeps its own copy.
func (w *Wizard) Replace(ctx context.Context, f FormState, touched ...string) Snapshot {
	return w.Update(ctx, func(dst *FormState) { *dst = f.Clone() }, touched...)
}

func (w *Wizard) autosave(ctx context.Context) {
	if !w.dirty || w.editMode {
		return
	}
	if err := w.drafts.Save(ctx, w.form); err != nil {
		w.logger.Warn("Draft autosave failed", map[string]interface{}{"error": err.Error()})
	}
}

// NextStep marks the current step's fields touched and advances when they
// are valid. It never moves past the summary step.
func (w *Wizard) NextStep() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.step
	for _, f := range Steps[from].Fields {
		w.touched[f] = true
	}
	full := w.validate()
	stepErrs := StepErrors(full, from)
	w.updatedAt = w.clock()

	advanced := false
	outcome := "blocked"
	switch {
	case from >= LastStep:
		outcome = "last"
	case stepErrs.Valid:
		w.step++
		advanced = true
		outcome = "advanced"
	default:
		w.logger.Debug("Step blocked by validation", map[string]interface{}{
			"step":   StepName(from),
			"fields": stepErrs.Fields(),
		})
	}
	metrics.WizardStepTransitions.WithLabelValues(StepName(from), outcome).Inc()
	return w.snapshot(full), advanced
}

// PrevStep goes back one step without validating.
func (w *Wizard) PrevStep() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	moved := false
	if w.step > 0 {
		metrics.WizardStepTransitions.WithLabelValues(StepName(w.step), "back").Inc()
		w.step--
		moved = true
	}
	w.updatedAt = w.clock()
	return w.snapshot(w.validate()), moved
}

// Reset clears the draft and restores the initial form: the loaded
// opportunity in edit mode, the default form otherwise. It is not
// reversible, so callers must pass confirmed.
func (w *Wizard) Reset(ctx context.Context, confirmed bool) (Snapshot, error) {
	if !confirmed {
		return w.Snapshot(), errors.NewConfirmationRequiredError("reset")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.drafts.Clear(ctx); err != nil {
		w.logger.Warn("Draft clear failed", map[string]interface{}{"error": err.Error()})
	}
	w.restart()
	w.logger.Info("Wizard reset", nil)
	return w.snapshot(w.validate()), nil
}

func (w *Wizard) restart() {
	w.form = w.initial.Clone()
	w.step = StepOpportunity
	w.dirty = false
	w.touched = map[string]bool{}
	w.showAll = false
	w.updatedAt = w.clock()
}

// SubmitResult is returned by a successful Submit.
type SubmitResult struct {
	Opportunity  models.Opportunity `json:"opportunity"`
	Notification Notification       `json:"notification"`
}

// Submit validates the whole form and sends the workflow create (or, in
// edit mode, the pricing update). On success the draft is cleared and the
// form reset. On failure step and form are left as they were.
func (w *Wizard) Submit(ctx context.Context) (*SubmitResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	mode := modeName(w.editMode)
	vctx := w.validationContext()
	full := Validate(w.form, vctx)
	if unresolved := UnresolvedOfferings(w.form, vctx); len(unresolved) > 0 {
		w.logger.Warn("Price type unchecked for unresolved product offerings", map[string]interface{}{"productOfferings": unresolved})
	}
	if !full.Valid {
		w.showAll = true
		metrics.WizardSubmissions.WithLabelValues(mode, "invalid").Inc()
		return nil, errors.NewValidationFailedError("form has invalid fields", full.FieldMessages())
	}

	started := w.clock()
	var (
		opp     models.Opportunity
		payload interface{}
		err     error
	)
	if w.editMode {
		var p PricingUpdatePayload
		if p, err = BuildPricingUpdatePayload(w.form); err == nil {
			payload = p
			opp, err = w.submitter.UpdatePricing(ctx, w.opportunityID, p)
		}
	} else {
		var p WorkflowPayload
		if p, err = BuildWorkflowPayload(w.form, vctx.IsNewCustomer(w.form)); err == nil {
			payload = p
			opp, err = w.submitter.CreateOpportunity(ctx, p)
		}
	}
	elapsed := w.clock().Sub(started)

	sub := Submission{
		ID:            uuid.NewString(),
		SessionID:     w.id,
		Mode:          mode,
		OpportunityID: firstNonEmpty(opp.ID, w.opportunityID),
		Payload:       payload,
		Duration:      elapsed,
		At:            started,
	}

	if err != nil {
		note := Notification{Level: LevelError, Message: failureMessage(w.editMode, err)}
		w.notification = &note
		sub.Outcome, sub.Error = "failed", err.Error()
		w.record(ctx, sub)
		w.publish(ctx, note)
		metrics.WizardSubmissions.WithLabelValues(mode, "failed").Inc()
		w.logger.Error("Submission failed", map[string]interface{}{"error": err.Error(), "step": w.step})
		return nil, err
	}

	deferred := isDeferred(w.submitter)
	note := Notification{Level: LevelSuccess, Message: successMessage(w.editMode, deferred), OpportunityID: sub.OpportunityID}
	sub.Outcome = "succeeded"
	if deferred {
		sub.Outcome = "started"
	}
	w.record(ctx, sub)
	w.publish(ctx, note)
	metrics.WizardSubmissions.WithLabelValues(mode, sub.Outcome).Inc()

	if err := w.drafts.Clear(ctx); err != nil {
		w.logger.Warn("Draft clear failed", map[string]interface{}{"error": err.Error()})
	}
	w.restart()
	w.completed = true
	w.notification = &note
	w.logger.Info("Submission succeeded", map[string]interface{}{"opportunityId": sub.OpportunityID, "durationMs": elapsed.Milliseconds()})
	return &SubmitResult{Opportunity: opp, Notification: note}, nil
}

func (w *Wizard) record(ctx context.Context, s Submission) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(ctx, s); err != nil {
		w.logger.Warn("Submission journal write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (w *Wizard) publish(ctx context.Context, n Notification) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Publish(ctx, n); err != nil {
		w.logger.Warn("Notification publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func successMessage(editMode, deferred bool) string {
	switch {
	case deferred && editMode:
		return "Pricing update started"
	case deferred:
		return "Opportunity submission started"
	case editMode:
		return "Opportunity updated successfully"
	}
	return "Opportunity created successfully"
}

func failureMessage(editMode bool, err error) string {
	action := "create"
	if editMode {
		action = "update"
	}
	msg := "Failed to " + action + " opportunity"
	if stdErr, ok := errors.As(err); ok {
		return msg + ": " + stdErr.Message
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
