package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	sharedApplication "github.com/felixgeelhaar/classbook/internal/shared/application"
)

// ErrInvalidCommand is returned when a command fails field validation.
var ErrInvalidCommand = errors.New("invalid command")

// CreateClassCommand contains the data needed to schedule a class.
type CreateClassCommand struct {
	LocationID uuid.UUID `validate:"required"`
	CoachID    uuid.UUID
	Name       string    `validate:"required,max=120"`
	ClassType  string    `validate:"max=60"`
	Room       string    `validate:"max=60"`
	StartTime  time.Time `validate:"required"`
	EndTime    time.Time `validate:"required,gtfield=StartTime"`
	Capacity   int       `validate:"min=1,max=500"`
}

// CreateClassResult contains the result of creating a class.
type CreateClassResult struct {
	ClassID uuid.UUID
}

// CreateClassHandler handles the CreateClassCommand.
type CreateClassHandler struct {
	classRepo domain.ClassRepository
	uow       sharedApplication.UnitOfWork
	validate  *validator.Validate
	now       func() time.Time
}

// NewCreateClassHandler creates a new CreateClassHandler.
func NewCreateClassHandler(classRepo domain.ClassRepository, uow sharedApplication.UnitOfWork) *CreateClassHandler {
	return &CreateClassHandler{
		classRepo: classRepo,
		uow:       uow,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Handle executes the CreateClassCommand.
func (h *CreateClassHandler) Handle(ctx context.Context, cmd CreateClassCommand) (*CreateClassResult, error) {
	if err := h.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	now := h.now()
	if !cmd.StartTime.After(now) {
		return nil, fmt.Errorf("%w: start time must be in the future", ErrInvalidCommand)
	}

	var result *CreateClassResult
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		class, err := domain.NewFitnessClass(domain.ClassDetails{
			LocationID: cmd.LocationID,
			CoachID:    cmd.CoachID,
			Name:       cmd.Name,
			ClassType:  cmd.ClassType,
			Room:       cmd.Room,
			StartTime:  cmd.StartTime,
			EndTime:    cmd.EndTime,
			Capacity:   cmd.Capacity,
		}, now)
		if err != nil {
			return err
		}

		if err := h.classRepo.Save(txCtx, class); err != nil {
			return err
		}

		result = &CreateClassResult{ClassID: class.ID()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
