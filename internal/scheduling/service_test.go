package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookHappyPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, b.Status)
	assert.Equal(t, env.patient.ID, b.PatientID)
	assert.Equal(t, env.doctor.ID, b.DoctorID)
	assert.Equal(t, TimeOfDay(10*60), b.Time)
	assert.True(t, b.Date.Equal(env.date))
}

func TestBookRejectsTakenSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	other := Patient{ID: uuid.New(), Name: "Priya Nair"}
	env.repo.AddPatient(other)

	_, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, err = env.svc.Book(ctx, other.ID, env.doctor.ID, env.date, 10*60)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookOutsideWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// 12:00 is the exclusive end of the declared window.
	_, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 12*60)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 8*60)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// 09:00 is the inclusive start.
	_, err = env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 9*60)
	assert.NoError(t, err)
}

func TestBookUnknownParticipants(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Book(ctx, uuid.New(), env.doctor.ID, env.date, 10*60)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = env.svc.Book(ctx, env.patient.ID, uuid.New(), env.date, 10*60)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookLockContention(t *testing.T) {
	env := newTestEnv()
	svc := NewService(env.repo, contendedLocker{}, nil)

	_, err := svc.Book(context.Background(), env.patient.ID, env.doctor.ID, env.date, 10*60)
	assert.ErrorIs(t, err, ErrSlotContended)
}

func TestBookConcurrentSameSlot(t *testing.T) {
	env := newTestEnv()

	// The in-memory repository enforces active-slot uniqueness on insert, so
	// even with the inline locker exactly one concurrent booking wins.
	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Book(context.Background(), env.patient.ID, env.doctor.ID, env.date, 11*60)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		default:
			assert.ErrorIs(t, err, ErrSlotUnavailable)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	reason := "patient request"
	cancelled, err := env.svc.Cancel(ctx, b.ID, Actor{ID: env.patient.ID, Role: RolePatient}, &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)

	// The slot is immediately bookable again.
	_, err = env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	assert.NoError(t, err)
}

func TestCancelPermissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stranger := Patient{ID: uuid.New(), Name: "Maia Cole"}
	env.repo.AddPatient(stranger)

	cases := []struct {
		name    string
		actor   Actor
		wantErr error
	}{
		{name: "owning patient", actor: Actor{ID: env.patient.ID, Role: RolePatient}},
		{name: "assigned doctor", actor: Actor{ID: env.doctor.ID, Role: RoleDoctor}},
		{name: "admin", actor: Actor{ID: uuid.New(), Role: RoleAdmin}},
		{name: "other patient", actor: Actor{ID: stranger.ID, Role: RolePatient}, wantErr: ErrForbidden},
		{name: "other doctor", actor: Actor{ID: uuid.New(), Role: RoleDoctor}, wantErr: ErrForbidden},
		{name: "no role", actor: Actor{ID: env.patient.ID}, wantErr: ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
			require.NoError(t, err)

			_, err = env.svc.Cancel(ctx, b.ID, tc.actor, nil)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				// Free the slot for the next case.
				_, err = env.svc.Cancel(ctx, b.ID, Actor{ID: uuid.New(), Role: RoleAdmin}, nil)
				require.NoError(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCancelTerminalBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, b.ID, admin, nil)
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, b.ID, admin, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.Cancel(ctx, uuid.New(), admin, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCompleteCreatesRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	rx := "ibuprofen 400mg"
	completed, record, err := env.svc.Complete(ctx, b.ID, env.doctor.ID, "tension headache", &rx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, record)
	assert.Equal(t, b.ID, record.BookingID)
	assert.Equal(t, "tension headache", record.Diagnosis)
	require.NotNil(t, record.Prescription)
	assert.Equal(t, rx, *record.Prescription)
}

func TestCompleteRequiresDiagnosis(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, _, err = env.svc.Complete(ctx, b.ID, env.doctor.ID, "   ", nil, nil)
	assert.ErrorIs(t, err, ErrDiagnosisRequired)
}

func TestCompleteOnlyAssignedDoctor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, _, err = env.svc.Complete(ctx, b.ID, uuid.New(), "flu", nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCompleteIsExclusive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, _, err = env.svc.Complete(ctx, b.ID, env.doctor.ID, "flu", nil, nil)
	require.NoError(t, err)

	// Second completion and cancellation both bounce off the terminal state.
	_, _, err = env.svc.Complete(ctx, b.ID, env.doctor.ID, "flu again", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.Cancel(ctx, b.ID, Actor{ID: env.doctor.ID, Role: RoleDoctor}, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompletedSlotReleasesHold(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, _, err = env.svc.Complete(ctx, b.ID, env.doctor.ID, "flu", nil, nil)
	require.NoError(t, err)

	// Completion ends the active hold on the slot; the calendar position is in
	// the past by then, so rebooking it is allowed.
	_, err = env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	assert.NoError(t, err)
}

func TestGetBookingDetail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	detail, err := env.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, detail.ID)
	assert.Equal(t, env.patient.Name, detail.PatientName)
	assert.Equal(t, env.doctor.Name, detail.DoctorName)

	_, err = env.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListForPatientFiltersAndOrders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b1, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 9*60)
	require.NoError(t, err)
	b2, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, b1.ID, Actor{ID: env.patient.ID, Role: RolePatient}, nil)
	require.NoError(t, err)

	all, err := env.svc.ListForPatient(ctx, env.patient.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first within the same date.
	assert.Equal(t, b2.ID, all[0].ID)

	status := StatusBooked
	active, err := env.svc.ListForPatient(ctx, env.patient.ID, &status)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b2.ID, active[0].ID)
}

func TestListForDoctorDateRange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tomorrow := env.date.AddDate(0, 0, 1)
	_, err := env.repo.CreateAvailability(ctx, AvailabilitySlot{
		DoctorID: env.doctor.ID, Date: tomorrow, StartTime: 9 * 60, EndTime: 12 * 60, IsAvailable: true,
	})
	require.NoError(t, err)

	_, err = env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 9*60)
	require.NoError(t, err)
	b2, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, tomorrow, 9*60)
	require.NoError(t, err)

	got, err := env.svc.ListForDoctor(ctx, env.doctor.ID, nil, &tomorrow, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b2.ID, got[0].ID)

	all, err := env.svc.ListForDoctor(ctx, env.doctor.ID, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Schedule order: earliest date first.
	assert.True(t, all[0].Date.Before(all[1].Date) || all[0].Date.Equal(all[1].Date))
}

func TestBookingTransitionsWriteEvents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b1, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 9*60)
	require.NoError(t, err)
	b2, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	reason := "patient request"
	_, err = env.svc.Cancel(ctx, b1.ID, Actor{ID: env.patient.ID, Role: RolePatient}, &reason)
	require.NoError(t, err)
	_, _, err = env.svc.Complete(ctx, b2.ID, env.doctor.ID, "flu", nil, nil)
	require.NoError(t, err)

	events := env.repo.Events()
	require.Len(t, events, 4)
	assert.Equal(t, EventBookingCreated, events[0].EventType)
	assert.Equal(t, EventBookingCreated, events[1].EventType)
	assert.Equal(t, EventBookingCancelled, events[2].EventType)
	assert.Equal(t, EventBookingCompleted, events[3].EventType)

	require.NotNil(t, events[2].BookingID)
	assert.Equal(t, b1.ID, *events[2].BookingID)
	assert.Contains(t, string(events[2].Payload), reason)

	require.NotNil(t, events[3].BookingID)
	assert.Equal(t, b2.ID, *events[3].BookingID)
}

// eventFailingRepo simulates an audit store outage.
type eventFailingRepo struct {
	*MemoryRepository
}

func (r *eventFailingRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	return errors.New("event store unavailable")
}

func TestEventWriteFailureDoesNotFailTransition(t *testing.T) {
	env := newTestEnv()
	svc := NewService(&eventFailingRepo{env.repo}, passLocker{}, nil)
	ctx := context.Background()

	b, err := svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, b.Status)

	cancelled, err := svc.Cancel(ctx, b.ID, Actor{ID: env.patient.ID, Role: RolePatient}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestSlotLockKeyShape(t *testing.T) {
	doctorID := uuid.MustParse("7b4a0a5e-1111-4222-8333-944445555666")
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	key := slotLockKey(doctorID, date, 9*60+30)
	assert.Equal(t, "lock:slot:7b4a0a5e-1111-4222-8333-944445555666:2026-03-14:09:30", key)
}
