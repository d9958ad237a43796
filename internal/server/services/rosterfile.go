package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ingenieros-gt/evote/internal/common"
	"github.com/ingenieros-gt/evote/internal/server/models"
)

// RosterItem is one roster row as it arrives over HTTP or in an import file.
// Colegiado and DPI accept JSON strings or numbers.
type RosterItem struct {
	Colegiado       FlexString `json:"colegiado"`
	Nombre          string     `json:"nombre"`
	Activo          *bool      `json:"activo"`
	DPI             FlexString `json:"dpi"`
	FechaNacimiento string     `json:"fechaNacimiento"`
	Email           string     `json:"email"`
}

// Record converts the item; a missing activo takes defaultActive.
func (it RosterItem) Record(defaultActive bool) models.RosterRecord {
	rec := models.RosterRecord{
		Colegiado: strings.TrimSpace(string(it.Colegiado)),
		Nombre:    strings.TrimSpace(it.Nombre),
		Activo:    defaultActive,
	}
	if it.Activo != nil {
		rec.Activo = *it.Activo
	}
	rec.DPI = optional(string(it.DPI))
	rec.FechaNacimiento = optional(it.FechaNacimiento)
	rec.Email = optional(it.Email)
	return rec
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("expected an integer, got %s", n)
	}
	*f = FlexString(n.String())
	return nil
}

// DecodeRoster reads a roster document: either a JSON array of items or an
// object with an "items" array.
func DecodeRoster(r io.Reader, defaultActive bool) ([]models.RosterRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var items []RosterItem
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &items)
	} else {
		var doc struct {
			Items []RosterItem `json:"items"`
		}
		err = json.Unmarshal(data, &doc)
		items = doc.Items
	}
	if err != nil {
		return nil, common.NewError(common.ErrorBadRequest, "invalid roster document: "+err.Error())
	}

	return Records(items, defaultActive), nil
}

// Records converts items in order.
func Records(items []RosterItem, defaultActive bool) []models.RosterRecord {
	out := make([]models.RosterRecord, 0, len(items))
	for _, it := range items {
		out = append(out, it.Record(defaultActive))
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
