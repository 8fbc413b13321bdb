// Package testing provides test utilities and database setup for testing the pipeline
package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates a customer with a unique randomized email and phone
func (tf *TestFixtures) CreateTestCustomer(source string) (*models.Customer, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)
	email := fmt.Sprintf("member.%s@example.com", randomDigits)
	phone := "+1555" + randomDigits[:7]
	name := "test member"
	now := utils.UTCNow()

	customer := &models.Customer{
		UUID:         uuid.New(),
		PrimaryEmail: &email,
		PrimaryPhone: &phone,
		PrimaryName:  &name,
		FirstSeen:    now,
		LastSeen:     now,
		Sources:      []string{source},
	}
	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}
	return customer, nil
}

// CreateContactlessCustomer creates a customer with no email or phone
func (tf *TestFixtures) CreateContactlessCustomer(source string) (*models.Customer, error) {
	name := "test child"
	now := utils.UTCNow()

	customer := &models.Customer{
		UUID:        uuid.New(),
		PrimaryName: &name,
		FirstSeen:   now,
		LastSeen:    now,
		Sources:     []string{source},
	}
	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create contactless customer: %w", err)
	}
	return customer, nil
}

// CreateTestEvent appends one event to the feed
func (tf *TestFixtures) CreateTestEvent(customerUUID uuid.UUID, eventType string, eventDate time.Time) (*models.Event, error) {
	event := &models.Event{
		CustomerUUID: customerUUID,
		EventType:    eventType,
		EventDate:    utils.TimeToUTC(eventDate),
		Source:       utils.SourceCapitan,
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}
	return event, nil
}

// CreateTestFlag persists one flag row
func (tf *TestFixtures) CreateTestFlag(customerUUID uuid.UUID, flagType string, triggered, added time.Time) (*models.Flag, error) {
	data, _ := json.Marshal(map[string]any{})
	flag := &models.Flag{
		CustomerUUID:  customerUUID,
		FlagType:      flagType,
		TriggeredDate: utils.TimeToUTC(triggered),
		FlagData:      data,
		Priority:      models.FlagPriorityMedium,
		FlagAddedDate: utils.TimeToUTC(added),
	}
	if err := tf.DB.DB.Create(flag).Error; err != nil {
		return nil, fmt.Errorf("failed to create test flag: %w", err)
	}
	return flag, nil
}

// CreateFamilyEdge links a child customer to a parent
func (tf *TestFixtures) CreateFamilyEdge(childUUID, parentUUID uuid.UUID) (*models.FamilyEdge, error) {
	edge := &models.FamilyEdge{
		ChildUUID:  childUUID,
		ParentUUID: parentUUID,
	}
	if err := tf.DB.DB.Create(edge).Error; err != nil {
		return nil, fmt.Errorf("failed to create family edge: %w", err)
	}
	return edge, nil
}
