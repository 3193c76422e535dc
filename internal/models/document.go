package models

import "encoding/json"

// Document is the single canonical dataset shared by all clients. Lists and
// recipes are kept as raw JSON because only their id and updatedAt fields
// matter to the server; everything else belongs to the clients.
type Document struct {
	Lists       []json.RawMessage `json:"lists"`
	Recipes     []json.RawMessage `json:"recipes"`
	Categories  []Category        `json:"categories"`
	ItemHistory []string          `json:"itemHistory"`
	LastSynced  *string           `json:"lastSynced"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RecordMeta is the slice of a list or recipe record the server understands.
type RecordMeta struct {
	ID        string `json:"id"`
	UpdatedAt string `json:"updatedAt"`
}

// Meta extracts id and updatedAt from a raw record. Records that fail to
// decode yield empty metadata, which conflict resolution treats as oldest.
func Meta(raw json.RawMessage) RecordMeta {
	var m RecordMeta
	_ = json.Unmarshal(raw, &m)
	return m
}

// Collection returns the document slice a share type refers to.
func (d *Document) Collection(shareType string) []json.RawMessage {
	if shareType == ShareTypeRecipe {
		return d.Recipes
	}
	return d.Lists
}

const (
	ShareTypeList   = "list"
	ShareTypeRecipe = "recipe"
)

// DefaultDocument is the document a fresh deployment starts with.
func DefaultDocument() Document {
	return Document{
		Lists:   []json.RawMessage{},
		Recipes: []json.RawMessage{},
		Categories: []Category{
			{ID: "fruit", Name: "Fruits", Color: "category-fruit"},
			{ID: "vegetables", Name: "Vegetables", Color: "category-vegetables"},
			{ID: "meat", Name: "Meat", Color: "category-meat"},
			{ID: "fish", Name: "Fish", Color: "category-fish"},
			{ID: "pasta", Name: "Pasta & Rice", Color: "category-pasta"},
			{ID: "sauce", Name: "Sauce", Color: "category-sauce"},
			{ID: "biscuit", Name: "Biscuits", Color: "category-biscuit"},
			{ID: "breakfast", Name: "Breakfast", Color: "category-breakfast"},
			{ID: "milk", Name: "Dairy", Color: "category-milk"},
			{ID: "cleaning", Name: "Cleaning", Color: "category-cleaning"},
		},
		ItemHistory: []string{},
	}
}

type SyncRequest struct {
	Data       *Document `json:"data" validate:"required"`
	LastSynced *string   `json:"lastSynced"`
}

type SyncResponse struct {
	Data      Document `json:"data"`
	UpdatedAt string   `json:"updatedAt"`
}

type GenerateShareRequest struct {
	Type string `json:"type" validate:"required,oneof=list recipe"`
	ID   string `json:"id" validate:"required"`
}

type UpdateSharedItemRequest struct {
	Data json.RawMessage `json:"data" validate:"required"`
}
