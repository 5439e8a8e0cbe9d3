package report

import (
	"encoding/json"
	"maps"
	"slices"
)

// JSON schemas for schema-constrained structured output. Every object lists
// all of its properties as required and forbids additional properties so the
// same document is accepted by OpenAI strict mode, Gemini and Ollama. Range
// limits live in descriptions because strict mode rejects min/max keywords.

func object(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             slices.Sorted(maps.Keys(props)),
		"additionalProperties": false,
	}
}

func text(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func enum(desc string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func array(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

func observationSchema() map[string]any {
	return object(map[string]any{
		"feature":      text("Short name of the visual feature"),
		"region":       enum("Face region the feature belongs to", stringsOf(Regions)),
		"evidence":     text("What is visible in the image"),
		"significance": text("What the feature suggests"),
	})
}

func coreProperties() map[string]any {
	return map[string]any{
		"score":             integer("Overall score, integer from 0 to 100"),
		"primaryCategory":   enum("Dominant five-element type", stringsOf(Categories)),
		"categoryRationale": text("Why this element was chosen"),
		"sections": array("Palace readings, at least one", object(map[string]any{
			"name":   text("Palace name"),
			"status": enum("Grade", stringsOf(SectionStatuses)),
			"detail": text("Reading"),
		})),
		"riskMetrics": array("Scored traits", object(map[string]any{
			"label":           text("Trait name"),
			"normalizedValue": integer("Percentage from 0 to 100"),
			"qualitativeTag":  text("Short qualitative tag"),
			"detail":          text("Explanation"),
		})),
		"narrativeBlocks": object(map[string]any{
			"past":    text("Past"),
			"present": text("Present"),
			"future":  text("Future"),
		}),
		"roleProfile": object(map[string]any{
			"role":          text("Workplace role label"),
			"strengths":     array("Strength tags, at least one", map[string]any{"type": "string"}),
			"advice":        text("Career advice"),
			"compatibility": text("Compatible colleagues"),
		}),
		"personalitySummary":  text("Personality summary"),
		"socialGuidance":      text("Social guidance"),
		"suggestedActivities": array("Suggested activities, at least one", map[string]any{"type": "string"}),
		"currentStateLabel":   text("Short label for the current state"),
		"currentStateMessage": text("Message about the current state"),
		"moles": array("Visible moles, empty when none are visible", object(map[string]any{
			"position": text("Where the mole is"),
			"nature":   enum("Auspiciousness", stringsOf(MoleNatures)),
			"meaning":  text("What the mole suggests"),
		})),
	}
}

// Schema is the single-stage report schema.
func Schema() map[string]any {
	return object(coreProperties())
}

// ExtendedSchema is the stage-two schema. Observations are not requested
// because they come from stage one.
func ExtendedSchema() map[string]any {
	props := coreProperties()
	props["headline"] = object(map[string]any{
		"verse":   text("Short verse"),
		"summary": text("One sentence summary"),
	})
	props["extendedLog"] = object(map[string]any{
		"structuralNotes": text("Notes on facial structure"),
		"demeanorNotes":   text("Notes on demeanor and expression"),
		"riskNotes":       text("Notes behind the risk metrics"),
	})
	return object(props)
}

// ObservationsSchema is the stage-one schema.
func ObservationsSchema() map[string]any {
	return object(map[string]any{
		"observations": array("Between 6 and 8 discrete visual observations", observationSchema()),
	})
}

// SchemaJSON renders a schema for embedding into instruction text.
func SchemaJSON(schema map[string]any) string {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
