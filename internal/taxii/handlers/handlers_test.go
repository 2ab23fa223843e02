package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

type fakeServices struct {
	services []models.Service
	err      error
}

func (s *fakeServices) GetServiceByPath(_ context.Context, path string) (*models.Service, error) {
	for i := range s.services {
		if s.services[i].Path == path {
			return &s.services[i], nil
		}
	}
	return nil, taxii.ErrNotFound
}

func (s *fakeServices) ListEnabledServices(_ context.Context) ([]models.Service, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.services, nil
}

type fakeCollections struct {
	collections []models.DataCollection
}

func (s *fakeCollections) GetCollectionByName(_ context.Context, name string) (*models.DataCollection, error) {
	for i := range s.collections {
		if s.collections[i].Name == name {
			return &s.collections[i], nil
		}
	}
	return nil, taxii.ErrNotFound
}

func (s *fakeCollections) ListEnabledCollections(_ context.Context) ([]models.DataCollection, error) {
	var out []models.DataCollection
	for _, c := range s.collections {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeBlocks struct {
	blocks     []models.ContentBlock
	lastFilter models.BlockFilter
	queries    int

	created      []*models.ContentBlock
	associations map[uuid.UUID][]string
	createErr    error
}

func (s *fakeBlocks) QueryBlocks(_ context.Context, _ string, filter models.BlockFilter) ([]models.ContentBlock, error) {
	s.lastFilter = filter
	s.queries++
	return s.blocks, nil
}

func (s *fakeBlocks) GetBlocksByIDs(_ context.Context, ids []uuid.UUID) ([]models.ContentBlock, error) {
	var out []models.ContentBlock
	for _, id := range ids {
		for _, b := range s.blocks {
			if b.ID == id {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *fakeBlocks) CreateWithAssociations(_ context.Context, block *models.ContentBlock, collectionNames []string) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.associations == nil {
		s.associations = make(map[uuid.UUID][]string)
	}
	s.created = append(s.created, block)
	s.associations[block.ID] = collectionNames
	return nil
}

type fakeInbox struct {
	records []*models.InboxRecord
}

func (s *fakeInbox) RecordInbox(_ context.Context, rec *models.InboxRecord) error {
	s.records = append(s.records, rec)
	return nil
}

type fakeSubscriptions struct {
	subs     []models.Subscription
	created  []*models.Subscription
	statuses map[string]models.SubscriptionStatus
}

func (s *fakeSubscriptions) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	for i := range s.subs {
		if s.subs[i].ID == id {
			return &s.subs[i], nil
		}
	}
	return nil, taxii.ErrNotFound
}

func (s *fakeSubscriptions) ListSubscriptionsByCollection(_ context.Context, collectionName string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.CollectionName == collectionName {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeSubscriptions) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	s.created = append(s.created, sub)
	s.subs = append(s.subs, *sub)
	return nil
}

func (s *fakeSubscriptions) SetSubscriptionStatus(_ context.Context, id string, status models.SubscriptionStatus) error {
	if s.statuses == nil {
		s.statuses = make(map[string]models.SubscriptionStatus)
	}
	s.statuses[id] = status
	for i := range s.subs {
		if s.subs[i].ID == id {
			s.subs[i].Status = status
		}
	}
	return nil
}

type fakeResults struct {
	saved    map[string]*models.ResultSet
	lastPart map[string]int
	saveErr  error
}

func (s *fakeResults) SaveResultSet(_ context.Context, rs *models.ResultSet) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.saved == nil {
		s.saved = make(map[string]*models.ResultSet)
	}
	s.saved[rs.ID] = rs
	return nil
}

func (s *fakeResults) GetResultSet(_ context.Context, id string) (*models.ResultSet, error) {
	rs, ok := s.saved[id]
	if !ok {
		return nil, taxii.ErrNotFound
	}
	return rs, nil
}

func (s *fakeResults) SetLastPartReturned(_ context.Context, id string, part int) error {
	if s.lastPart == nil {
		s.lastPart = make(map[string]int)
	}
	s.lastPart[id] = part
	return nil
}

type fakeEvents struct {
	events []ContentEvent
	err    error
}

func (p *fakeEvents) PublishContentReceived(_ context.Context, ev ContentEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

var errStoreDown = errors.New("store down")
