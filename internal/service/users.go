package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/actorctx"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordStore is the persistence port. FindByID, FindByEmail and Delete return
// user.ErrNotFound on a miss. Save inserts when ID is zero and assigns the id,
// otherwise it overwrites the stored row.
type RecordStore interface {
	FindByID(ctx context.Context, id int64) (user.Record, error)
	FindByEmail(ctx context.Context, email string) (user.Record, error)
	FindAll(ctx context.Context) ([]user.Record, error)
	Save(ctx context.Context, rec user.Record) (user.Record, error)
	Delete(ctx context.Context, id int64) error
}

type Clock interface {
	Now() time.Time
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// EventPublisher hands lifecycle jobs to the worker queue.
type EventPublisher interface {
	Publish(ctx context.Context, j jobs.Job) error
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type UserService struct {
	store    RecordStore
	clock    Clock
	hasher   PasswordHasher
	events   EventPublisher
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

type Option func(*UserService)

func WithClock(c Clock) Option { return func(s *UserService) { s.clock = c } }

func WithPublisher(p EventPublisher) Option { return func(s *UserService) { s.events = p } }

func WithLogger(l *slog.Logger) Option { return func(s *UserService) { s.logger = l } }

func NewUserService(store RecordStore, hasher PasswordHasher, opts ...Option) *UserService {
	v := validator.New()
	// same rules the HTTP layer binds with
	v.SetTagName("binding")

	s := &UserService{
		store:    store,
		clock:    SystemClock{},
		hasher:   hasher,
		logger:   slog.Default(),
		validate: v,
		tracer:   otel.Tracer("storefront/service/users"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *UserService) Create(ctx context.Context, req user.Request) (user.Response, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Create")
	defer span.End()

	l := s.log(ctx, "Create")

	if err := s.validate.Struct(req); err != nil {
		return user.Response{}, s.fail(span, invalid(err))
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return user.Response{}, s.fail(span, err)
	}

	rec := user.Record{CreatedAt: s.clock.Now()}
	rec.Apply(req, hash)

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		l.WarnContext(ctx, "create failed", slog.Any("error", err))
		return user.Response{}, s.fail(span, fmt.Errorf("create user: %w", err))
	}

	span.SetAttributes(attribute.Int64("user.id", saved.ID))
	l.InfoContext(ctx, "user created", slog.Int64("user_id", saved.ID))

	s.publish(ctx, jobs.JobUserCreated, jobs.UserCreatedPayload{
		UserID:    saved.ID,
		Email:     saved.Email,
		UserName:  saved.UserName,
		FullName:  saved.FullName,
		RequestID: actorctx.RequestIDFrom(ctx),
	})

	span.SetStatus(codes.Ok, "")
	return user.ToResponse(saved), nil
}

// Update replaces every mutable field, password included.
func (s *UserService) Update(ctx context.Context, id int64, req user.Request) (user.Response, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Update", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return user.Response{}, s.fail(span, invalid(err))
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return user.Response{}, s.fail(span, fmt.Errorf("update user %d: %w", id, err))
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return user.Response{}, s.fail(span, err)
	}

	rec.Apply(req, hash)

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return user.Response{}, s.fail(span, fmt.Errorf("update user %d: %w", id, err))
	}

	s.log(ctx, "Update").InfoContext(ctx, "user updated", slog.Int64("user_id", id))

	span.SetStatus(codes.Ok, "")
	return user.ToResponse(saved), nil
}

// Patch writes only the fields present in p.
func (s *UserService) Patch(ctx context.Context, id int64, p user.PatchRequest) (user.Response, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Patch", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if p.IsEmpty() {
		return user.Response{}, s.fail(span, fmt.Errorf("%w: no fields to update", user.ErrInvalidInput))
	}

	if err := s.validate.Struct(p); err != nil {
		return user.Response{}, s.fail(span, invalid(err))
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return user.Response{}, s.fail(span, fmt.Errorf("patch user %d: %w", id, err))
	}

	rec.ApplyPatch(p)

	if p.Password != nil {
		hash, err := s.hash(*p.Password)
		if err != nil {
			return user.Response{}, s.fail(span, err)
		}
		rec.PasswordHash = hash
	}

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return user.Response{}, s.fail(span, fmt.Errorf("patch user %d: %w", id, err))
	}

	s.log(ctx, "Patch").InfoContext(ctx, "user patched", slog.Int64("user_id", id))

	span.SetStatus(codes.Ok, "")
	return user.ToResponse(saved), nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (user.Response, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return user.Response{}, s.fail(span, fmt.Errorf("get user %d: %w", id, err))
	}

	return user.ToResponse(rec), nil
}

// GetAll returns every user in ascending id order. An empty store yields an
// empty, non-nil slice.
func (s *UserService) GetAll(ctx context.Context) ([]user.Response, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetAll")
	defer span.End()

	records, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("list users: %w", err))
	}

	span.SetAttributes(attribute.Int("user.count", len(records)))
	s.log(ctx, "GetAll").DebugContext(ctx, "users listed", slog.Int("count", len(records)))

	return user.ToResponses(records), nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "UserService.Delete", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.fail(span, fmt.Errorf("delete user %d: %w", id, err))
	}

	if err := s.store.Delete(ctx, rec.ID); err != nil {
		return s.fail(span, fmt.Errorf("delete user %d: %w", id, err))
	}

	s.log(ctx, "Delete").InfoContext(ctx, "user deleted", slog.Int64("user_id", id))

	s.publish(ctx, jobs.JobUserDeleted, jobs.UserDeletedPayload{
		UserID:    rec.ID,
		Email:     rec.Email,
		UserName:  rec.UserName,
		RequestID: actorctx.RequestIDFrom(ctx),
	})

	return nil
}

// EnsureUser creates req unless a user with the same email already exists.
// The bool reports whether a record was created.
func (s *UserService) EnsureUser(ctx context.Context, req user.Request) (user.Response, bool, error) {
	existing, err := s.store.FindByEmail(ctx, req.Email)
	if err == nil {
		return user.ToResponse(existing), false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.Response{}, false, fmt.Errorf("lookup user by email: %w", err)
	}

	created, err := s.Create(ctx, req)
	if err != nil {
		return user.Response{}, false, err
	}

	return created, true, nil
}

// publish is fire-and-forget: a queue outage must not fail a write that has
// already been committed.
func (s *UserService) publish(ctx context.Context, t jobs.JobType, payload any) {
	if s.events == nil {
		return
	}

	j, err := jobs.Build(t, payload)
	if err == nil {
		err = s.events.Publish(ctx, j)
	}

	if err != nil {
		s.logger.WarnContext(ctx, "lifecycle job not enqueued",
			slog.String("job_type", string(t)),
			slog.Any("error", err),
		)
		return
	}

	s.logger.DebugContext(ctx, "lifecycle job enqueued", slog.String("job_type", string(t)), slog.String("job_id", j.ID))
}

func (s *UserService) log(ctx context.Context, method string) *slog.Logger {
	l := s.logger.With(slog.String("method", method))

	if actor, ok := actorctx.UserIDFrom(ctx); ok {
		l = l.With(slog.String("actor_id", actor))
	}
	if rid := actorctx.RequestIDFrom(ctx); rid != "" {
		l = l.With(slog.String("request_id", rid))
	}

	return l
}

func (s *UserService) fail(span trace.Span, err error) error {
	// a miss is a normal answer, keep it out of error traces
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrInvalidInput) {
		span.SetStatus(codes.Unset, err.Error())
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *UserService) hash(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return "", invalid(err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", user.ErrInvalidInput, err)
}

// ParseID parses a path identifier. Ids are positive.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", user.ErrInvalidInput)
	}

	return id, nil
}
