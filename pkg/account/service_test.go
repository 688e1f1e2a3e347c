package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/clock"
	"github.com/rollforge/tavernkeep/pkg/credentials"
	"github.com/rollforge/tavernkeep/pkg/errors"
	"github.com/rollforge/tavernkeep/pkg/mailqueue"
	"github.com/rollforge/tavernkeep/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	svc    *Service
	repo   *InMemoryRepository
	queue  *mailqueue.InMemoryRepository
	clk    *clock.Stub
	hasher credentials.Hasher
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	settingsRepo := settings.NewInMemoryRepository()
	for name, value := range map[string]string{
		settings.SettingActivationWindowMinutes: "5",
		settings.SettingActivationLinkFormat:    "https://tavernkeep.example/activate/%s/%s",
		settings.SettingResetLinkFormat:         "https://tavernkeep.example/reset/%s/%s",
		settings.SettingServiceAccountUsername:  "tavernkeep",
	} {
		require.NoError(t, settingsRepo.Create(ctx, settings.GlobalSetting{
			ID:    uuid.New(),
			Name:  name,
			Value: value,
		}))
	}

	repo := NewInMemoryRepository()
	queue := mailqueue.NewInMemoryRepository()
	clk := clock.NewStub(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	hasher := credentials.NewPbkdf2Hasher()
	svc := NewService(repo, settings.NewService(settingsRepo), hasher, clk, queue)

	// Seed the service account that outgoing mail is sent from.
	require.NoError(t, repo.Create(ctx, Account{
		ID:        uuid.New(),
		FirstName: "Tavern",
		LastName:  "Keep",
		Username:  "tavernkeep",
		Email:     "noreply@tavernkeep.example",
		Password:  "-",
		Status:    StatusActive,
		Role:      RoleAdmin,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}, Activation{Username: "tavernkeep", Code: "seed", ExpiresAt: clk.Now()}))

	return &testHarness{svc: svc, repo: repo, queue: queue, clk: clk, hasher: hasher}
}

func newAccountInput() Account {
	return Account{
		FirstName: "Mira",
		LastName:  "Dunmore",
		Username:  "MiraTheBold",
		Email:     "Mira@Example.com",
		Password:  "s3cret-passphrase",
	}
}

func TestCreate(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, newAccountInput())
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "mirathebold", created.Username)
	assert.Equal(t, "mira@example.com", created.Email)
	assert.Equal(t, StatusCreated, created.Status)
	assert.Equal(t, RoleStandard, created.Role)
	assert.NotEqual(t, uuid.Nil, created.ID)

	// Password is stored hashed, never as supplied.
	assert.NotEqual(t, "s3cret-passphrase", created.Password)
	assert.True(t, h.hasher.Verify("s3cret-passphrase", created.Password))

	require.NotNil(t, created.ActivationCode)
	require.NotNil(t, created.ActivationExpiry)
	assert.Equal(t, h.clk.Now().Add(5*time.Minute), *created.ActivationExpiry)

	msgs := h.queue.All()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].ShouldSend)
	assert.Equal(t, "mira@example.com", msgs[0].RecipientEmail)
	assert.Equal(t, "noreply@tavernkeep.example", msgs[0].SenderEmail)
	assert.Contains(t, msgs[0].Body, *created.ActivationCode)
	assert.Contains(t, msgs[0].ResponseLog, "Email created")
}

func TestCreateValidation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	t.Run("all violations reported together", func(t *testing.T) {
		_, err := h.svc.Create(ctx, Account{Email: "not-an-address"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

		fields := make(map[string]bool)
		for _, f := range errors.GetFields(err) {
			fields[f.Field] = true
		}
		assert.True(t, fields["first_name"])
		assert.True(t, fields["last_name"])
		assert.True(t, fields["username"])
		assert.True(t, fields["email"])
		assert.True(t, fields["password"])
	})

	t.Run("duplicate username and email are case-insensitive", func(t *testing.T) {
		_, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		dup := newAccountInput()
		dup.Username = "MIRATHEBOLD"
		dup.Email = "MIRA@EXAMPLE.COM"
		_, err = h.svc.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
		assert.Len(t, errors.GetFields(err), 2)
	})
}

func TestCreateIsAtomic(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.repo.FailActivationWrite = true
	_, err := h.svc.Create(ctx, newAccountInput())
	require.Error(t, err)

	// Neither half of the write survives a failure, and no email is queued.
	acct, err := h.svc.GetByUsername(ctx, "mirathebold")
	require.NoError(t, err)
	assert.Nil(t, acct)
	assert.Empty(t, h.queue.All())
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code activates", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		err = h.svc.Activate(ctx, Activation{Username: created.Username, Code: *created.ActivationCode})
		require.NoError(t, err)

		acct, err := h.svc.GetByUsername(ctx, created.Username)
		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, StatusActive, acct.Status)
		require.NotNil(t, acct.ActivatedAt)
		assert.Nil(t, acct.ActivationCode)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		err = h.svc.Activate(ctx, Activation{Username: created.Username, Code: "bogus"})
		assert.ErrorIs(t, err, ErrActivationInvalid)
	})

	t.Run("code at or past expiry is rejected", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		h.clk.Advance(5 * time.Minute)
		err = h.svc.Activate(ctx, Activation{Username: created.Username, Code: *created.ActivationCode})
		assert.ErrorIs(t, err, ErrActivationInvalid)
	})

	t.Run("just before expiry still activates", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		h.clk.Advance(5*time.Minute - time.Second)
		err = h.svc.Activate(ctx, Activation{Username: created.Username, Code: *created.ActivationCode})
		assert.NoError(t, err)
	})

	t.Run("second activation fails", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)
		code := *created.ActivationCode

		require.NoError(t, h.svc.Activate(ctx, Activation{Username: created.Username, Code: code}))
		err = h.svc.Activate(ctx, Activation{Username: created.Username, Code: code})
		assert.ErrorIs(t, err, ErrActivationInvalid)
	})

	t.Run("unknown account", func(t *testing.T) {
		h := newTestHarness(t)
		err := h.svc.Activate(ctx, Activation{Username: "nobody", Code: "x"})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestResendActivation(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a fresh code and queues a new email", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)
		oldCode := *created.ActivationCode

		h.clk.Advance(10 * time.Minute)
		require.NoError(t, h.svc.ResendActivation(ctx, created.Username, oldCode))

		acct, err := h.svc.GetByUsername(ctx, created.Username)
		require.NoError(t, err)
		require.NotNil(t, acct.ActivationCode)
		assert.NotEqual(t, oldCode, *acct.ActivationCode)
		assert.Equal(t, h.clk.Now().Add(5*time.Minute), *acct.ActivationExpiry)
		assert.Len(t, h.queue.All(), 2)

		// The replacement code works even though the old one had expired.
		assert.NoError(t, h.svc.Activate(ctx, Activation{Username: acct.Username, Code: *acct.ActivationCode}))
	})

	t.Run("requires the current code", func(t *testing.T) {
		h := newTestHarness(t)
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)

		err = h.svc.ResendActivation(ctx, created.Username, "bogus")
		assert.ErrorIs(t, err, ErrActivationInvalid)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	activated := func(t *testing.T, h *testHarness) *Account {
		created, err := h.svc.Create(ctx, newAccountInput())
		require.NoError(t, err)
		require.NoError(t, h.svc.Activate(ctx, Activation{Username: created.Username, Code: *created.ActivationCode}))
		acct, err := h.svc.GetByUsername(ctx, created.Username)
		require.NoError(t, err)
		return acct
	}

	t.Run("unknown email does not reveal anything", func(t *testing.T) {
		h := newTestHarness(t)
		require.NoError(t, h.svc.RequestPasswordReset(ctx, "ghost@example.com"))
		assert.Empty(t, h.queue.All())
	})

	t.Run("request stores a code and queues an email", func(t *testing.T) {
		h := newTestHarness(t)
		acct := activated(t, h)

		require.NoError(t, h.svc.RequestPasswordReset(ctx, acct.Email))

		acct, err := h.svc.GetByEmail(ctx, acct.Email)
		require.NoError(t, err)
		require.NotNil(t, acct.ResetCode)
		require.NotNil(t, acct.ResetExpiry)

		msgs := h.queue.All()
		require.Len(t, msgs, 2) // activation email plus the reset email
		assert.Contains(t, msgs[1].Body, *acct.ResetCode)

		assert.NoError(t, h.svc.VerifyPasswordResetCode(ctx, acct.Email, *acct.ResetCode))
	})

	t.Run("expired or wrong code fails verification", func(t *testing.T) {
		h := newTestHarness(t)
		acct := activated(t, h)
		require.NoError(t, h.svc.RequestPasswordReset(ctx, acct.Email))
		acct, err := h.svc.GetByEmail(ctx, acct.Email)
		require.NoError(t, err)

		assert.ErrorIs(t, h.svc.VerifyPasswordResetCode(ctx, acct.Email, "bogus"), ErrResetInvalid)
		assert.ErrorIs(t, h.svc.VerifyPasswordResetCode(ctx, "ghost@example.com", "bogus"), ErrResetInvalid)

		h.clk.Advance(5 * time.Minute)
		assert.ErrorIs(t, h.svc.VerifyPasswordResetCode(ctx, acct.Email, *acct.ResetCode), ErrResetInvalid)
	})

	t.Run("reset replaces the password and clears the code", func(t *testing.T) {
		h := newTestHarness(t)
		acct := activated(t, h)
		require.NoError(t, h.svc.RequestPasswordReset(ctx, acct.Email))
		acct, err := h.svc.GetByEmail(ctx, acct.Email)
		require.NoError(t, err)
		code := *acct.ResetCode

		require.NoError(t, h.svc.ResetPassword(ctx, acct.Email, code, "new-passphrase"))

		acct, err = h.svc.GetByEmail(ctx, acct.Email)
		require.NoError(t, err)
		assert.True(t, h.hasher.Verify("new-passphrase", acct.Password))
		assert.False(t, h.hasher.Verify("s3cret-passphrase", acct.Password))
		assert.Nil(t, acct.ResetCode)

		// The code is single-use.
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, acct.Email, code, "another"), ErrResetInvalid)
	})
}

func TestUpdate(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, newAccountInput())
	require.NoError(t, err)

	created.FirstName = "Mirabel"
	created.Role = RoleTrusted
	h.clk.Advance(time.Hour)

	updated, err := h.svc.Update(ctx, *created)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, h.clk.Now(), updated.UpdatedAt)

	acct, err := h.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mirabel", acct.FirstName)
	assert.Equal(t, RoleTrusted, acct.Role)

	t.Run("missing account returns nil", func(t *testing.T) {
		ghost := *created
		ghost.ID = uuid.New()
		updated, err := h.svc.Update(ctx, ghost)
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("blank names are rejected", func(t *testing.T) {
		bad := *created
		bad.FirstName = " "
		_, err := h.svc.Update(ctx, bad)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	})
}

func TestDelete(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, newAccountInput())
	require.NoError(t, err)

	deleted, err := h.svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	acct, err := h.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, acct)

	// The username and email free up for a new registration.
	again := newAccountInput()
	_, err = h.svc.Create(ctx, again)
	require.NoError(t, err)

	deleted, err = h.svc.Delete(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetAllPaging(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "bravo", "charlie", "delta"} {
		in := newAccountInput()
		in.Username = name
		in.Email = name + "@example.com"
		_, err := h.svc.Create(ctx, in)
		require.NoError(t, err)
	}

	page, err := h.svc.GetAll(ctx, GetAllOptions{Page: 1, PageSize: 2, SortField: "username", SortOrder: SortAscending})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alpha", page[0].Username)
	assert.Equal(t, "bravo", page[1].Username)

	count, err := h.svc.GetCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5, count) // four created here plus the service account

	count, err = h.svc.GetCount(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordLogin(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, newAccountInput())
	require.NoError(t, err)

	h.clk.Advance(time.Minute)
	h.svc.RecordLogin(ctx, created.ID)

	acct, err := h.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, acct.LastLoginAt)
	assert.Equal(t, h.clk.Now(), *acct.LastLoginAt)

	// Unknown IDs are swallowed, never surfaced to the login path.
	h.svc.RecordLogin(ctx, uuid.New())
}
