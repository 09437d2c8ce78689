package lucidbot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// LucidbotConnection links a user to a LucidBot account via an API token.
// One per user, token stored encrypted.
type LucidbotConnection struct {
	gorm.Model
	UserID         uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	TokenEncrypted string `gorm:"not null" json:"-"`
	AccountName    string `json:"account_name"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
}

// AccountPayload is the upstream response to a token verification call.
type AccountPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ContactPayload is one upstream contact from a custom-field lookup.
type ContactPayload struct {
	ID           int64        `json:"id"`
	FullName     string       `json:"full_name"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	CreatedAt    string       `json:"created_at"`
	CustomFields CustomFields `json:"custom_fields"`
}

// CustomFields maps custom field names to their values. The panel
// normally ships it as a JSON object; some exports ship a list of
// {id, name, value} objects instead. Both shapes decode into the map,
// and non-string values are flattened to their string form.
type CustomFields map[string]string

func (f *CustomFields) UnmarshalJSON(data []byte) error {
	out := make(map[string]string)

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil {
		for name, value := range obj {
			out[name] = fieldString(value)
		}
		*f = out
		return nil
	}

	var list []struct {
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, cf := range list {
		out[cf.Name] = fieldString(cf.Value)
	}
	*f = out
	return nil
}

func fieldString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// FieldValue returns the value of the named custom field, matched
// case-insensitively.
func (p ContactPayload) FieldValue(name string) string {
	for field, value := range p.CustomFields {
		if strings.EqualFold(field, name) {
			return value
		}
	}
	return ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// parseContactTime reads upstream timestamps, which arrive as
// "2006-01-02T15:04:05" with an optional fractional/zone tail.
func parseContactTime(s string) *time.Time {
	if len(s) < 19 {
		return nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s[:19])
	if err != nil {
		return nil
	}
	return &t
}
