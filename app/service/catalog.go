package service

import (
	"encoding/json"
	"os"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
)

// CatalogService serves the static props catalog. The file is read once
// at startup; editing the catalog means restarting the kiosk.
type CatalogService struct {
	props []entity.Prop
	byID  map[int64]entity.Prop
}

func NewCatalogService(path string) (*CatalogService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var props []entity.Prop
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}

	byID := make(map[int64]entity.Prop, len(props))
	for _, prop := range props {
		byID[prop.ID] = prop
	}

	return &CatalogService{props: props, byID: byID}, nil
}

func (s *CatalogService) Props() []entity.Prop {
	items := make([]entity.Prop, len(s.props))
	copy(items, s.props)
	return items
}

func (s *CatalogService) PropByID(id int64) (entity.Prop, bool) {
	prop, ok := s.byID[id]
	return prop, ok
}
