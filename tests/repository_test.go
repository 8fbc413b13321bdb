// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/repository"
	testingutil "github.com/steelferguson/basin-climbing-data-pipeline-sub000/testing"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
)

func TestCustomerRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCustomerRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByUUID", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, customer.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, customer.UUID, found.UUID)
			assert.Equal(t, *customer.PrimaryEmail, *found.PrimaryEmail)
			assert.ElementsMatch(t, []string{utils.SourceCapitan}, []string(found.Sources))
		})

		t.Run("ByUUIDNotFound", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByPrimaryEmail", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer(utils.SourceStripe)
			require.NoError(t, err)

			found, err := repo.ByPrimaryEmail(ctx, *customer.PrimaryEmail)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, customer.UUID, found.UUID)
		})

		t.Run("UpdateSeen", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
			require.NoError(t, err)

			later := utils.UTCNow().Add(24 * time.Hour)
			customer.Touch(later)
			customer.AddSource(utils.SourceSquare)
			require.NoError(t, repo.UpdateSeen(ctx, customer))

			found, err := repo.ByUUID(ctx, customer.UUID)
			require.NoError(t, err)
			assert.WithinDuration(t, later, found.LastSeen, time.Second)
			assert.ElementsMatch(t, []string{utils.SourceCapitan, utils.SourceSquare}, []string(found.Sources))
		})

		t.Run("ListAll", func(t *testing.T) {
			customers, err := repo.ListAll(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(customers), 3)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestIdentifierRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewIdentifierRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
		require.NoError(t, err)

		identifiers := []*models.Identifier{
			{
				CustomerUUID:    customer.UUID,
				IdentifierType:  models.IdentifierTypeEmail,
				RawValue:        " A@X.com ",
				NormalizedValue: "a@x.com",
				Source:          utils.SourceCapitan,
				MatchConfidence: models.ConfidenceExact,
				MatchReason:     models.MatchReasonNewCustomer,
				ObservedAt:      utils.UTCNow(),
				IsPrimary:       true,
			},
			{
				CustomerUUID:    customer.UUID,
				IdentifierType:  models.IdentifierTypePhone,
				RawValue:        "(555) 123-4567",
				NormalizedValue: "+15551234567",
				Source:          utils.SourceStripe,
				MatchConfidence: models.ConfidenceHigh,
				MatchReason:     models.MatchReasonExactEmail,
				ObservedAt:      utils.UTCNow(),
			},
		}
		require.NoError(t, repo.SaveBatch(ctx, identifiers))

		t.Run("ListByCustomer", func(t *testing.T) {
			found, err := repo.ListByCustomer(ctx, customer.UUID)
			require.NoError(t, err)
			assert.Len(t, found, 2)
		})

		t.Run("ListAllReturnsAppendOrder", func(t *testing.T) {
			winner, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
			require.NoError(t, err)
			other, err := fixtures.CreateTestCustomer(utils.SourceMailchimp)
			require.NoError(t, err)

			// Written later but observed earlier. Registry reload replays
			// first-writer-wins, so the log must come back in write order,
			// not observed_at order.
			early := utils.UTCNow().Add(-365 * 24 * time.Hour)
			late := utils.UTCNow()
			first := &models.Identifier{
				CustomerUUID:    winner.UUID,
				IdentifierType:  models.IdentifierTypeEmail,
				RawValue:        "shared@x.com",
				NormalizedValue: "shared@x.com",
				Source:          utils.SourceCapitan,
				MatchConfidence: models.ConfidenceHigh,
				MatchReason:     models.MatchReasonExactEmail,
				ObservedAt:      late,
			}
			second := &models.Identifier{
				CustomerUUID:    other.UUID,
				IdentifierType:  models.IdentifierTypeEmail,
				RawValue:        "shared@x.com",
				NormalizedValue: "shared@x.com",
				Source:          utils.SourceMailchimp,
				MatchConfidence: models.ConfidenceHigh,
				MatchReason:     models.MatchReasonExactEmail,
				ObservedAt:      early,
			}
			require.NoError(t, repo.Save(ctx, first))
			require.NoError(t, repo.Save(ctx, second))

			all, err := repo.ListAll(ctx)
			require.NoError(t, err)
			firstIdx, secondIdx := -1, -1
			for i, row := range all {
				if row.ID == first.ID {
					firstIdx = i
				}
				if row.ID == second.ID {
					secondIdx = i
				}
			}
			require.NotEqual(t, -1, firstIdx)
			require.NotEqual(t, -1, secondIdx)
			assert.Less(t, firstIdx, secondIdx)
		})

		t.Run("ByFilterType", func(t *testing.T) {
			found, err := repo.ByFilter(ctx, models.IdentifierFilter{CustomerUUID: &customer.UUID, IdentifierType: utils.ToPtr(models.IdentifierTypeEmail)}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "a@x.com", found[0].NormalizedValue)
			assert.True(t, found[0].IsPrimary)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFlagRepositoryReplaceAll(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewFlagRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
		require.NoError(t, err)

		now := utils.UTCNow()
		_, err = fixtures.CreateTestFlag(customer.UUID, "old_flag", now.Add(-48*time.Hour), now.Add(-48*time.Hour))
		require.NoError(t, err)

		replacement := []*models.Flag{
			{CustomerUUID: customer.UUID, FlagType: "new_flag", TriggeredDate: now, FlagAddedDate: now, Priority: models.FlagPriorityHigh},
		}
		require.NoError(t, repo.ReplaceAll(ctx, replacement))

		flags, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, flags, 1)
		assert.Equal(t, "new_flag", flags[0].FlagType)

		// Replacing with an empty set empties the table.
		require.NoError(t, repo.ReplaceAll(ctx, nil))
		flags, err = repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, flags)

		return nil
	})
	require.NoError(t, err)
}

func TestExperimentEntryRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewExperimentEntryRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer(utils.SourceCapitan)
		require.NoError(t, err)

		entry := &models.ExperimentEntry{
			CustomerUUID: customer.UUID,
			ExperimentID: "welcome_offer_v1",
			ABGroup:      "a",
			FlagType:     "day_pass_follow_up",
			EnteredAt:    utils.UTCNow(),
		}
		require.NoError(t, repo.Save(ctx, entry))

		has, err := repo.HasEntry(ctx, customer.UUID, "welcome_offer_v1")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = repo.HasEntry(ctx, customer.UUID, "another_experiment")
		require.NoError(t, err)
		assert.False(t, has)

		return nil
	})
	require.NoError(t, err)
}
