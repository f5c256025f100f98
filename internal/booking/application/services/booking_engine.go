package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/classbook/internal/shared/application"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

// BookingEngine books, cancels and waitlists users for classes. Each
// operation runs in one unit of work that ends with a versioned write of the
// class row; losing that race reruns the whole operation.
type BookingEngine struct {
	uow        sharedApplication.UnitOfWork
	classes    domain.ClassRepository
	bookings   domain.BookingRepository
	waitlist   domain.WaitlistRepository
	outbox     outbox.Writer
	rules      domain.RuleReader
	logger     *slog.Logger
	metrics    observability.Metrics
	now        func() time.Time
	policy     RetryPolicy
	isConflict conflictClassifier
}

// Option configures a BookingEngine.
type Option func(*BookingEngine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *BookingEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics observability.Metrics) Option {
	return func(e *BookingEngine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *BookingEngine) {
		e.now = now
	}
}

// WithRetryPolicy sets the conflict retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(e *BookingEngine) {
		e.policy = policy
	}
}

// WithConflictClassifier treats errors matched by fn as lost races too, for
// example a serialization failure reported by the database.
func WithConflictClassifier(fn func(error) bool) Option {
	return func(e *BookingEngine) {
		if fn == nil {
			return
		}
		e.isConflict = func(err error) bool {
			return defaultConflict(err) || fn(err)
		}
	}
}

// NewBookingEngine creates a booking engine.
func NewBookingEngine(
	uow sharedApplication.UnitOfWork,
	classes domain.ClassRepository,
	bookings domain.BookingRepository,
	waitlist domain.WaitlistRepository,
	outboxRepo outbox.Writer,
	rules domain.RuleReader,
	opts ...Option,
) *BookingEngine {
	e := &BookingEngine{
		uow:        uow,
		classes:    classes,
		bookings:   bookings,
		waitlist:   waitlist,
		outbox:     outboxRepo,
		rules:      rules,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		now:        time.Now,
		policy:     DefaultRetryPolicy(),
		isConflict: defaultConflict,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BookClass gives the user a seat, or a waitlist place when the class is full.
func (e *BookingEngine) BookClass(ctx context.Context, classID, userID uuid.UUID) (*domain.BookingOutcome, error) {
	ctx, span := observability.StartSpan(ctx, "booking.BookClass",
		attribute.String("class_id", classID.String()),
		attribute.String("user_id", userID.String()),
	)

	var outcome *domain.BookingOutcome
	err := e.run(ctx, "book_class", func(txCtx context.Context) error {
		var err error
		outcome, err = e.bookClass(txCtx, classID, userID)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		e.reject("book_class", err)
		return nil, err
	}

	if outcome.IsBooked() {
		e.metrics.Counter(observability.MetricBookingBooked, 1)
		e.logger.InfoContext(ctx, "class booked",
			"class_id", classID,
			"user_id", userID,
			"booking_id", outcome.Booking.ID(),
		)
	} else {
		e.metrics.Counter(observability.MetricBookingWaitlisted, 1)
		e.logger.InfoContext(ctx, "user waitlisted",
			"class_id", classID,
			"user_id", userID,
			"position", outcome.Entry.Position(),
		)
	}
	return outcome, nil
}

func (e *BookingEngine) bookClass(ctx context.Context, classID, userID uuid.UUID) (*domain.BookingOutcome, error) {
	if err := e.bookings.LockUser(ctx, userID); err != nil {
		return nil, err
	}

	rules := e.rules.Get(ctx)
	now := e.now()

	class, err := e.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := class.CheckBookable(now); err != nil {
		return nil, err
	}

	if err := e.ensureNotEnrolled(ctx, classID, userID); err != nil {
		return nil, err
	}

	overlap, err := e.bookings.HasOverlap(ctx, userID, class.StartTime(), class.EndTime())
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, domain.ErrScheduleConflict
	}

	dayStart, dayEnd := class.BookingDay()
	daily, err := e.bookings.CountConfirmedStartingBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if daily >= rules.MaxBookingsPerDay {
		return nil, domain.ErrDailyLimitExceeded
	}

	confirmed, err := e.bookings.CountConfirmed(ctx, classID)
	if err != nil {
		return nil, err
	}
	waiting, err := e.waitlist.Count(ctx, classID)
	if err != nil {
		return nil, err
	}

	var outcome *domain.BookingOutcome
	if confirmed < class.Capacity() {
		booking := domain.NewBooking(userID, classID, now)
		if err := e.bookings.Save(ctx, booking); err != nil {
			return nil, err
		}
		class.RecordBooked(booking, confirmed+1, waiting, now)
		outcome = domain.Booked(booking)
	} else {
		if waiting >= rules.MaxWaitlistSize {
			return nil, domain.ErrWaitlistFull
		}
		last, err := e.waitlist.MaxPosition(ctx, classID)
		if err != nil {
			return nil, err
		}
		entry, err := domain.NewWaitlistEntry(userID, classID, last+1, now)
		if err != nil {
			return nil, err
		}
		if err := e.waitlist.Save(ctx, entry); err != nil {
			return nil, err
		}
		outcome = domain.Waitlisted(entry)
	}

	if err := e.commit(ctx, class, userID, now); err != nil {
		return nil, err
	}
	return outcome, nil
}

// ensureNotEnrolled rejects a user who already holds a seat or a waitlist
// place for the class.
func (e *BookingEngine) ensureNotEnrolled(ctx context.Context, classID, userID uuid.UUID) error {
	_, err := e.bookings.FindConfirmed(ctx, classID, userID)
	switch {
	case err == nil:
		return domain.ErrAlreadyBooked
	case !errors.Is(err, domain.ErrBookingNotFound):
		return err
	}

	_, err = e.waitlist.Find(ctx, classID, userID)
	switch {
	case err == nil:
		return domain.ErrAlreadyWaitlisted
	case !errors.Is(err, domain.ErrWaitlistEntryNotFound):
		return err
	}
	return nil
}

// CancelBooking releases the user's seat and hands it to the head of the
// waitlist, if any.
func (e *BookingEngine) CancelBooking(ctx context.Context, classID, userID uuid.UUID) error {
	ctx, span := observability.StartSpan(ctx, "booking.CancelBooking",
		attribute.String("class_id", classID.String()),
		attribute.String("user_id", userID.String()),
	)

	var promoted *domain.Booking
	err := e.run(ctx, "cancel_booking", func(txCtx context.Context) error {
		var err error
		promoted, err = e.cancelBooking(txCtx, classID, userID)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		e.reject("cancel_booking", err)
		return err
	}

	e.metrics.Counter(observability.MetricBookingCancelled, 1)
	e.logger.InfoContext(ctx, "booking cancelled", "class_id", classID, "user_id", userID)
	if promoted != nil {
		e.metrics.Counter(observability.MetricWaitlistPromoted, 1)
		e.logger.InfoContext(ctx, "waitlisted user promoted",
			"class_id", classID,
			"user_id", promoted.UserID(),
			"booking_id", promoted.ID(),
		)
	}
	return nil
}

func (e *BookingEngine) cancelBooking(ctx context.Context, classID, userID uuid.UUID) (*domain.Booking, error) {
	rules := e.rules.Get(ctx)
	now := e.now()

	booking, err := e.bookings.FindConfirmed(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	class, err := e.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := class.CheckCancellable(now, rules.CancellationWindow); err != nil {
		return nil, err
	}

	if err := booking.Cancel(now); err != nil {
		return nil, err
	}
	if err := e.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}
	class.RecordCancelled(booking, now)

	promoted, err := e.promote(ctx, class, now)
	if err != nil {
		return nil, err
	}

	if err := e.commit(ctx, class, userID, now); err != nil {
		return nil, err
	}
	return promoted, nil
}

// promote moves the head of the waitlist into a free seat. The head is taken
// strictly in order; nil means nobody was waiting or no seat is free.
func (e *BookingEngine) promote(ctx context.Context, class *domain.FitnessClass, now time.Time) (*domain.Booking, error) {
	if class.IsCancelled() {
		return nil, nil
	}

	confirmed, err := e.bookings.CountConfirmed(ctx, class.ID())
	if err != nil {
		return nil, err
	}
	if confirmed >= class.Capacity() {
		return nil, nil
	}

	head, err := e.waitlist.Head(ctx, class.ID())
	if errors.Is(err, domain.ErrWaitlistEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.waitlist.Remove(ctx, head); err != nil {
		return nil, err
	}
	booking := domain.NewBooking(head.UserID(), class.ID(), now)
	if err := e.bookings.Save(ctx, booking); err != nil {
		return nil, err
	}
	class.RecordPromoted(booking, head, now)
	return booking, nil
}

// RemoveFromWaitlist withdraws the user from the class waitlist. Nobody is
// promoted; later entries move up one place.
func (e *BookingEngine) RemoveFromWaitlist(ctx context.Context, classID, userID uuid.UUID) error {
	ctx, span := observability.StartSpan(ctx, "booking.RemoveFromWaitlist",
		attribute.String("class_id", classID.String()),
		attribute.String("user_id", userID.String()),
	)

	err := e.run(ctx, "remove_from_waitlist", func(txCtx context.Context) error {
		now := e.now()
		entry, err := e.waitlist.Find(txCtx, classID, userID)
		if err != nil {
			return err
		}
		class, err := e.classes.FindByID(txCtx, classID)
		if err != nil {
			return err
		}
		if err := e.waitlist.Remove(txCtx, entry); err != nil {
			return err
		}
		return e.commit(txCtx, class, userID, now)
	})
	observability.EndSpan(span, err)
	if err != nil {
		e.reject("remove_from_waitlist", err)
		return err
	}

	e.metrics.Counter(observability.MetricWaitlistLeft, 1)
	e.logger.InfoContext(ctx, "user left waitlist", "class_id", classID, "user_id", userID)
	return nil
}

// CancelClass calls off a class. Confirmed bookings are cancelled, the
// waitlist is cleared, and the affected users are listed in ClassCancelled.
func (e *BookingEngine) CancelClass(ctx context.Context, classID uuid.UUID) error {
	ctx, span := observability.StartSpan(ctx, "booking.CancelClass",
		attribute.String("class_id", classID.String()),
	)

	var affected, waitlisted int
	err := e.run(ctx, "cancel_class", func(txCtx context.Context) error {
		now := e.now()
		class, err := e.classes.FindByID(txCtx, classID)
		if err != nil {
			return err
		}
		if class.IsCancelled() {
			return domain.ErrClassAlreadyCancelled
		}

		users, err := e.bookings.CancelAllConfirmed(txCtx, classID, now)
		if err != nil {
			return err
		}
		waiting, err := e.waitlist.RemoveAll(txCtx, classID)
		if err != nil {
			return err
		}
		if err := class.Cancel(now, users, waiting); err != nil {
			return err
		}
		affected, waitlisted = len(users), len(waiting)
		return e.commit(txCtx, class, uuid.Nil, now)
	})
	observability.EndSpan(span, err)
	if err != nil {
		e.reject("cancel_class", err)
		return err
	}

	e.metrics.Counter(observability.MetricClassCancelled, 1)
	e.logger.InfoContext(ctx, "class cancelled",
		"class_id", classID,
		"cancelled_bookings", affected,
		"cleared_waitlist", waitlisted,
	)
	return nil
}

// commit bumps the class version and writes the recorded events to the
// outbox. It must be the last write of the unit of work.
func (e *BookingEngine) commit(ctx context.Context, class *domain.FitnessClass, actor uuid.UUID, now time.Time) error {
	class.Touch(now)
	if err := e.classes.UpdateVersioned(ctx, class); err != nil {
		return err
	}

	events := class.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, actor))

	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := e.outbox.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	class.ClearDomainEvents()
	return nil
}

// run executes fn in a fresh unit of work per attempt.
func (e *BookingEngine) run(ctx context.Context, operation string, fn sharedApplication.UnitOfWorkFunc) error {
	onRetry := func(attempt int, err error) {
		e.metrics.Counter(observability.MetricBookingConflictRetries, 1, observability.T("operation", operation))
		e.logger.DebugContext(ctx, "write conflict, retrying",
			"operation", operation,
			"attempt", attempt,
			"error", err,
		)
	}

	timer := observability.StartTimer(e.metrics, operation)
	err := retry(ctx, e.policy, e.isConflict, onRetry, func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, e.uow, fn)
	})
	timer.Stop(err)
	if errors.Is(err, domain.ErrTransientConflict) {
		e.metrics.Counter(observability.MetricBookingConflictGaveUp, 1, observability.T("operation", operation))
		e.logger.WarnContext(ctx, "giving up after repeated write conflicts",
			"operation", operation,
			"attempts", e.policy.MaxAttempts,
		)
	}
	return err
}

func (e *BookingEngine) reject(operation string, err error) {
	if domain.IsRejection(err) || domain.IsNotFound(err) {
		e.metrics.Counter(observability.MetricBookingRejected, 1,
			observability.T("operation", operation),
			observability.T("reason", reason(err)),
		)
	}
}

var rejectionReasons = []struct {
	err error
	tag string
}{
	{domain.ErrAlreadyWaitlisted, "already_waitlisted"},
	{domain.ErrAlreadyBooked, "already_booked"},
	{domain.ErrScheduleConflict, "schedule_conflict"},
	{domain.ErrDailyLimitExceeded, "daily_limit"},
	{domain.ErrWaitlistFull, "waitlist_full"},
	{domain.ErrClassAlreadyCancelled, "class_cancelled"},
	{domain.ErrNotBookable, "not_bookable"},
	{domain.ErrCancellationWindowClosed, "window_closed"},
	{domain.ErrClassNotFound, "class_not_found"},
	{domain.ErrBookingNotFound, "booking_not_found"},
	{domain.ErrWaitlistEntryNotFound, "entry_not_found"},
}

func reason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.tag
		}
	}
	return "other"
}
