package item

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/karming-leong/datacentric-assingment/internal/apperr"
	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

// CreateInput holds the client supplied attributes of a new item.
type CreateInput struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required"`
	PrimaryLevel int    `json:"primaryLevel" validate:"min=1,max=6"`
	Comment      string `json:"comment"`
}

// UpdateInput lists the fields a client may change; nil fields are kept.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitnil,min=1"`
	Type     *string `json:"type" validate:"omitnil,min=1"`
	Comment  *string `json:"comment"`
	Acquired *bool   `json:"acquired"`
}

// SearchInput holds the optional filters of a search.
type SearchInput struct {
	Level *int
	Query string
	Type  string
	Sort  string
}

// Service implements owner-scoped item management.
type Service struct {
	items    repository.ItemRepository
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// New returns an item service.
func New(items repository.ItemRepository, logger *slog.Logger) Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return Service{items: items, validate: validate, logger: logger, now: time.Now}
}

// ListByLevel returns the caller's items for one primary level in creation order.
func (s Service) ListByLevel(ctx context.Context, id domain.Identity, level int) ([]domain.Item, error) {
	if !id.Valid() {
		return nil, apperr.Authentication(errors.New("missing identity"))
	}
	items, err := s.items.ListItems(ctx, domain.ItemQuery{Owner: id.UserID, Level: &level})
	if err != nil {
		return nil, storageError(err)
	}
	return items, nil
}

// Search filters the caller's items by level, free text and type.
func (s Service) Search(ctx context.Context, id domain.Identity, input SearchInput) ([]domain.Item, error) {
	if !id.Valid() {
		return nil, apperr.Authentication(errors.New("missing identity"))
	}
	query := domain.ItemQuery{
		Owner: id.UserID,
		Level: input.Level,
		Text:  input.Query,
		Type:  input.Type,
		Sort:  domain.ParseSortKey(input.Sort),
	}
	items, err := s.items.ListItems(ctx, query)
	if err != nil {
		return nil, storageError(err)
	}
	return items, nil
}

// Create stores a new item owned by the caller.
func (s Service) Create(ctx context.Context, id domain.Identity, input CreateInput) (*domain.Item, error) {
	if !id.Valid() {
		return nil, apperr.Authentication(errors.New("missing identity"))
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	if err := s.check(input); err != nil {
		return nil, err
	}
	item := &domain.Item{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Type:         input.Type,
		PrimaryLevel: input.PrimaryLevel,
		Comment:      input.Comment,
		Acquired:     false,
		CreatedAt:    s.now().UTC(),
		Owner:        id.UserID,
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("item created", "item_id", item.ID, "user_id", id.UserID, "level", item.PrimaryLevel)
	return item, nil
}

// Update changes the provided fields of one of the caller's items.
func (s Service) Update(ctx context.Context, id domain.Identity, itemID string, input UpdateInput) (*domain.Item, error) {
	if !id.Valid() {
		return nil, apperr.Authentication(errors.New("missing identity"))
	}
	itemID, ok := normalizeID(itemID)
	if !ok {
		return nil, apperr.NotFound("Item")
	}
	input.Name = trimPtr(input.Name)
	input.Type = trimPtr(input.Type)
	if err := s.check(input); err != nil {
		return nil, err
	}
	patch := domain.ItemPatch{
		Name:     input.Name,
		Type:     input.Type,
		Comment:  input.Comment,
		Acquired: input.Acquired,
	}
	item, err := s.items.UpdateItem(ctx, id.UserID, itemID, patch)
	if err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("item updated", "item_id", item.ID, "user_id", id.UserID)
	return item, nil
}

// Delete removes one of the caller's items.
func (s Service) Delete(ctx context.Context, id domain.Identity, itemID string) error {
	if !id.Valid() {
		return apperr.Authentication(errors.New("missing identity"))
	}
	itemID, ok := normalizeID(itemID)
	if !ok {
		return apperr.NotFound("Item")
	}
	if err := s.items.DeleteItem(ctx, id.UserID, itemID); err != nil {
		return storageError(err)
	}
	s.logger.Info("item deleted", "item_id", itemID, "user_id", id.UserID)
	return nil
}

func (s Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Internal(err)
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, describe(fe))
	}
	return apperr.Validation(strings.Join(messages, "; "), err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		if fe.Field() == "primaryLevel" {
			return fmt.Sprintf("primaryLevel must be between %d and %d", domain.MinPrimaryLevel, domain.MaxPrimaryLevel)
		}
		return fmt.Sprintf("%s must not be blank", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// normalizeID reports whether raw is a UUID and returns its canonical form.
// Malformed ids are treated as absent.
func normalizeID(raw string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func storageError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("Item")
	case errors.Is(err, repository.ErrConstraint):
		return apperr.Validation("Item is invalid", err)
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return apperr.Transient(err)
	default:
		return apperr.Internal(err)
	}
}
