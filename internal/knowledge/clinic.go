package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadClinicInfo reads the clinic knowledge file. A missing file yields the
// built-in defaults.
func LoadClinicInfo(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultClinicInfo(), nil
		}
		return nil, fmt.Errorf("knowledge: read clinic info %s: %w", path, err)
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("knowledge: parse clinic info %s: %w", path, err)
	}
	return info, nil
}

// DefaultClinicInfo is the built-in knowledge base used when no clinic info
// file is configured.
func DefaultClinicInfo() map[string]any {
	return map[string]any{
		"name":    "CareWell Family Clinic",
		"address": "412 Maple Avenue, Suite 201, Riverside",
		"phone":   "(555) 014-2200",
		"email":   "hello@carewellclinic.example",
		"hours": map[string]any{
			"monday_friday": "9:00 AM - 5:00 PM, lunch closure 12:00 PM - 1:00 PM",
			"saturday":      "9:00 AM - 1:00 PM",
			"sunday":        "Closed",
		},
		"parking":   "Free patient parking behind the building; street parking on Maple Avenue.",
		"insurance": "We accept most major insurance plans including BlueCross, Aetna, and Cigna. Self-pay rates are available.",
		"policies": map[string]any{
			"cancellation": "Please cancel or reschedule at least 24 hours in advance to avoid a missed-appointment fee.",
			"new_patients": "New patients should arrive 15 minutes early with a photo ID and insurance card.",
			"prescriptions": "Prescription refill requests are handled within 2 business days; use the patient portal or call the front desk.",
		},
		"services": []any{
			"General consultations and routine checkups",
			"Comprehensive physical examinations",
			"Follow-up visits and chronic condition management",
			"Specialist consultations by referral",
		},
	}
}

// FlattenClinicInfo turns the nested clinic map into retrievable sentences,
// one fact per document. Keys are sorted so output is deterministic.
func FlattenClinicInfo(info map[string]any) []string {
	var out []string
	flattenInto("", info, &out)
	sort.Strings(out)
	return out
}

func flattenInto(prefix string, value any, out *[]string) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label := k
			if prefix != "" {
				label = prefix + " " + k
			}
			flattenInto(label, v[k], out)
		}
	case []any:
		for _, item := range v {
			flattenInto(prefix, item, out)
		}
	default:
		text := fmt.Sprintf("%v", v)
		if strings.TrimSpace(text) == "" {
			return
		}
		label := strings.ReplaceAll(prefix, "_", " ")
		if label == "" {
			*out = append(*out, text)
			return
		}
		*out = append(*out, fmt.Sprintf("%s: %s", label, text))
	}
}
