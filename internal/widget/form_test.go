package widget

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"bookingwidget/internal/client"
	"bookingwidget/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateBooking(ctx context.Context, b models.Booking) (*models.Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockAPI) CheckAvailability(ctx context.Context, date, slot string) (bool, error) {
	args := m.Called(ctx, date, slot)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPI) BookedSlots(ctx context.Context, date string) ([]string, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestForm() (*Form, *mockAPI, *Notifier) {
	api := new(mockAPI)
	n, _ := newTestNotifier(nil)
	return NewForm(api, models.DefaultCatalog(), n, nil), api, n
}

func fillForm(t *testing.T, f *Form) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.SetField(ctx, FieldFullName, "Jane Doe"))
	require.NoError(t, f.SetField(ctx, FieldContactNumber, "+1 555 123 4567"))
	require.NoError(t, f.SetField(ctx, FieldEmail, "jane@example.com"))
	require.NoError(t, f.SetField(ctx, FieldService, "Pet Grooming"))
	require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
	require.NoError(t, f.SetField(ctx, FieldTime, "09:30"))
}

func TestFormValidate(t *testing.T) {
	f, _, _ := newTestForm()

	errs := f.Validate()
	assert.Equal(t, map[string]string{
		FieldFullName:      "Full name is required",
		FieldContactNumber: "Contact number is required",
		FieldEmail:         "Email is required",
		FieldService:       "Please select a service",
		FieldDate:          "Please select a date",
		FieldTime:          "Please select a time",
	}, errs)

	ctx := context.Background()
	require.NoError(t, f.SetField(ctx, FieldContactNumber, "12345"))
	require.NoError(t, f.SetField(ctx, FieldEmail, "jane@example"))
	assert.NotContains(t, f.Errors(), FieldEmail, "editing a field clears its error")

	errs = f.Validate()
	assert.Equal(t, "Please enter a valid contact number", errs[FieldContactNumber])
	assert.Equal(t, "Please enter a valid email address", errs[FieldEmail])
}

func TestFormSetFieldUnknown(t *testing.T) {
	f, _, _ := newTestForm()
	err := f.SetField(context.Background(), "nickname", "JD")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFormAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog minus booked", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{"09:00", "10:30"}, nil).Once()

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		slots := f.AvailableSlots()
		assert.Len(t, slots, len(models.TimeSlots)-2)
		assert.NotContains(t, slots, "09:00")
		assert.NotContains(t, slots, "10:30")
		assert.Equal(t, "09:30", slots[0])
		api.AssertExpectations(t)
	})

	t.Run("same date does not refetch", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{}, nil).Once()

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		api.AssertNumberOfCalls(t, "BookedSlots", 1)
	})

	t.Run("selected time cleared when booked", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{}, nil).Once()
		api.On("BookedSlots", ctx, "2025-06-02").Return([]string{"09:30"}, nil).Once()

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		require.NoError(t, f.SetField(ctx, FieldTime, "09:30"))
		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-02"))
		assert.Empty(t, f.Values().Time)
	})

	t.Run("fail open on error", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return(nil, errors.New("connection refused")).Once()

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		assert.Equal(t, models.TimeSlots, f.AvailableSlots())
	})

	t.Run("per slot fallback", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").
			Return(nil, &client.APIError{StatusCode: http.StatusNotFound}).Once()
		api.On("CheckAvailability", ctx, "2025-06-01", "09:00").Return(false, nil).Once()
		api.On("CheckAvailability", ctx, "2025-06-01", "09:30").Return(false, errors.New("timeout")).Once()
		api.On("CheckAvailability", ctx, "2025-06-01", mock.Anything).Return(true, nil)

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		slots := f.AvailableSlots()
		assert.NotContains(t, slots, "09:00")
		assert.Contains(t, slots, "09:30", "failed check is treated as free")
		assert.Len(t, slots, len(models.TimeSlots)-1)
		api.AssertNumberOfCalls(t, "CheckAvailability", len(models.TimeSlots))
	})

	t.Run("clearing date resets slots", func(t *testing.T) {
		f, api, _ := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{"09:00"}, nil).Once()

		require.NoError(t, f.SetField(ctx, FieldDate, "2025-06-01"))
		require.NoError(t, f.SetField(ctx, FieldDate, ""))
		assert.Equal(t, models.TimeSlots, f.AvailableSlots())
	})
}

func TestFormSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid form is not sent", func(t *testing.T) {
		f, api, n := newTestForm()
		_, err := f.Submit(ctx)
		assert.ErrorIs(t, err, ErrFormInvalid)
		assert.NotEmpty(t, f.Errors())
		api.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
		_, shown := n.Current()
		assert.False(t, shown)
	})

	t.Run("success resets form", func(t *testing.T) {
		f, api, n := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{}, nil).Once()
		fillForm(t, f)

		api.On("CreateBooking", ctx, mock.MatchedBy(func(b models.Booking) bool {
			return b.FullName == "Jane Doe" && b.Time == "09:30"
		})).Return(&models.Booking{ID: 1, FullName: "Jane Doe"}, nil).Once()

		created, err := f.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, models.Booking{}, f.Values())
		assert.False(t, f.Submitting())

		note, ok := n.Current()
		require.True(t, ok)
		assert.Equal(t, KindSuccess, note.Kind)
		assert.Equal(t, MsgBookingCreated, note.Message)
	})

	t.Run("conflict keeps form", func(t *testing.T) {
		f, api, n := newTestForm()
		api.On("BookedSlots", ctx, "2025-06-01").Return([]string{}, nil).Once()
		fillForm(t, f)
		api.On("CreateBooking", ctx, mock.Anything).
			Return(nil, &client.APIError{StatusCode: http.StatusConflict, Message: "Time slot already booked"}).Once()

		_, err := f.Submit(ctx)
		assert.ErrorIs(t, err, client.ErrSlotTaken)
		assert.Equal(t, "Jane Doe", f.Values().FullName)

		note, ok := n.Current()
		require.True(t, ok)
		assert.Equal(t, KindError, note.Kind)
		assert.Equal(t, MsgSlotTaken, note.Message)
	})
}

func TestSubmitErrorMessage(t *testing.T) {
	assert.Equal(t, MsgCreateFailed, SubmitErrorMessage(errors.New("dial tcp: refused")))
	assert.Equal(t, MsgSlotTaken, SubmitErrorMessage(&client.APIError{StatusCode: http.StatusConflict}))
	assert.Equal(t, "Invalid email. Invalid date format", SubmitErrorMessage(&client.APIError{
		StatusCode: http.StatusBadRequest,
		Details: []client.FieldError{
			{Field: "email", Message: "Invalid email"},
			{Field: "date", Message: "Invalid date format"},
		},
	}))
	assert.Equal(t, MsgCreateFailed, SubmitErrorMessage(&client.APIError{StatusCode: http.StatusBadRequest}))
}
