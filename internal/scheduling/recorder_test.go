package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequiresBookingAndDiagnosis(t *testing.T) {
	env := newTestEnv()
	rec := NewRecorder(env.repo, false)
	ctx := context.Background()

	_, err := rec.Record(ctx, uuid.New(), "flu", nil, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, err = rec.Record(ctx, b.ID, "  ", nil, nil)
	assert.ErrorIs(t, err, ErrDiagnosisRequired)

	record, err := rec.Record(ctx, b.ID, "flu", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, b.ID, record.BookingID)
}

func TestRecordDefendsOnePerBooking(t *testing.T) {
	env := newTestEnv()
	rec := NewRecorder(env.repo, false)
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, err = rec.Record(ctx, b.ID, "flu", nil, nil)
	require.NoError(t, err)

	_, err = rec.Record(ctx, b.ID, "flu, revised", nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestHistoryForPatient(t *testing.T) {
	env := newTestEnv()
	rec := NewRecorder(env.repo, false)
	ctx := context.Background()

	b1, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 9*60)
	require.NoError(t, err)
	b2, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)

	_, _, err = env.svc.Complete(ctx, b1.ID, env.doctor.ID, "flu", nil, nil)
	require.NoError(t, err)
	_, _, err = env.svc.Complete(ctx, b2.ID, env.doctor.ID, "sprained ankle", nil, nil)
	require.NoError(t, err)

	history, err := rec.HistoryForPatient(ctx, env.patient.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, entry := range history {
		assert.Equal(t, env.doctor.Name, entry.DoctorName)
		assert.True(t, entry.BookingDate.Equal(env.date))
	}

	// Another patient sees nothing.
	history, err = rec.HistoryForPatient(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAmendPolicyGate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, env.date, 10*60)
	require.NoError(t, err)
	_, record, err := env.svc.Complete(ctx, b.ID, env.doctor.ID, "flu", nil, nil)
	require.NoError(t, err)

	doctor := Actor{ID: env.doctor.ID, Role: RoleDoctor}
	newDiag := "influenza A"

	disabled := NewRecorder(env.repo, false)
	_, err = disabled.Amend(ctx, record.ID, doctor, &newDiag, nil, nil)
	assert.ErrorIs(t, err, ErrAmendDisabled)

	enabled := NewRecorder(env.repo, true)

	_, err = enabled.Amend(ctx, record.ID, Actor{ID: env.patient.ID, Role: RolePatient}, &newDiag, nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	blank := "  "
	_, err = enabled.Amend(ctx, record.ID, doctor, &blank, nil, nil)
	assert.ErrorIs(t, err, ErrDiagnosisRequired)

	notes := "follow up in two weeks"
	amended, err := enabled.Amend(ctx, record.ID, doctor, &newDiag, nil, &notes)
	require.NoError(t, err)
	assert.Equal(t, newDiag, amended.Diagnosis)
	require.NotNil(t, amended.Notes)
	assert.Equal(t, notes, *amended.Notes)

	_, err = enabled.Amend(ctx, uuid.New(), doctor, &newDiag, nil, nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
