package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableSnapshots      = "student_snapshots"
	tableLLMEvents      = "llm_request_events"
	tableMasteryEvents  = "mastery_events"
	tableRoutingEvents  = "routing_events"
	tableMisconceptions = "misconception_events"
	tableSequence       = "global_sequence"
)

// eventTable starts an event table with the columns every event shares:
// an auto-increment id, the global sequence and a timestamp.
func eventTable(name string) *schema.Table {
	t := schema.NewTable(name)
	t.AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	t.AddColumn(&schema.Column{Name: "sequence", Type: field.TypeInt64, Unique: true})
	t.AddColumn(&schema.Column{Name: "timestamp", Type: field.TypeTime})
	return t
}

func str(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Default: ""}
}

func tables() []*schema.Table {
	snapshots := eventTable(tableSnapshots)
	snapshots.AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString})
	snapshots.AddColumn(&schema.Column{Name: "data", Type: field.TypeBytes})
	snapshots.AddIndex("studentsnapshot_student_id_sequence", false, []string{"student_id", "sequence"})

	llmEvents := eventTable(tableLLMEvents)
	llmEvents.AddColumn(str("provider"))
	llmEvents.AddColumn(str("model"))
	llmEvents.AddColumn(str("purpose"))
	llmEvents.AddColumn(&schema.Column{Name: "input_tokens", Type: field.TypeInt, Default: 0})
	llmEvents.AddColumn(&schema.Column{Name: "output_tokens", Type: field.TypeInt, Default: 0})
	llmEvents.AddColumn(&schema.Column{Name: "latency_ms", Type: field.TypeInt64, Default: 0})
	llmEvents.AddColumn(&schema.Column{Name: "success", Type: field.TypeBool})
	llmEvents.AddColumn(str("error_message"))
	llmEvents.AddColumn(str("request_body"))
	llmEvents.AddColumn(str("response_body"))
	llmEvents.AddIndex("llmrequestevent_purpose", false, []string{"purpose"})

	masteryEvents := eventTable(tableMasteryEvents)
	masteryEvents.AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString})
	masteryEvents.AddColumn(str("session_id"))
	masteryEvents.AddColumn(&schema.Column{Name: "topic", Type: field.TypeString})
	masteryEvents.AddColumn(&schema.Column{Name: "from_mastery", Type: field.TypeFloat64})
	masteryEvents.AddColumn(&schema.Column{Name: "to_mastery", Type: field.TypeFloat64})
	masteryEvents.AddColumn(str("from_state"))
	masteryEvents.AddColumn(str("to_state"))
	masteryEvents.AddColumn(&schema.Column{Name: "correct", Type: field.TypeBool})
	masteryEvents.AddIndex("masteryevent_student_id_topic", false, []string{"student_id", "topic"})

	routingEvents := eventTable(tableRoutingEvents)
	routingEvents.AddColumn(&schema.Column{Name: "event_id", Type: field.TypeString, Unique: true})
	routingEvents.AddColumn(str("student_id"))
	routingEvents.AddColumn(str("session_id"))
	routingEvents.AddColumn(&schema.Column{Name: "profile", Type: field.TypeString})
	routingEvents.AddColumn(&schema.Column{Name: "label", Type: field.TypeString})
	routingEvents.AddColumn(&schema.Column{Name: "confidence", Type: field.TypeFloat64})
	routingEvents.AddColumn(str("rules"))
	routingEvents.AddColumn(&schema.Column{Name: "follow_up", Type: field.TypeBool})
	routingEvents.AddColumn(&schema.Column{Name: "should_confirm", Type: field.TypeBool})
	routingEvents.AddColumn(&schema.Column{Name: "degraded", Type: field.TypeBool})
	routingEvents.AddColumn(&schema.Column{Name: "cached", Type: field.TypeBool})

	misconceptions := eventTable(tableMisconceptions)
	misconceptions.AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString})
	misconceptions.AddColumn(str("session_id"))
	misconceptions.AddColumn(&schema.Column{Name: "topic", Type: field.TypeString})
	misconceptions.AddColumn(&schema.Column{Name: "misconception_id", Type: field.TypeString})
	misconceptions.AddColumn(str("detector"))
	misconceptions.AddColumn(str("student_answer"))
	misconceptions.AddIndex("misconceptionevent_student_id_topic", false, []string{"student_id", "topic"})

	sequence := schema.NewTable(tableSequence)
	sequence.AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt})
	sequence.AddColumn(&schema.Column{Name: "next_val", Type: field.TypeInt64, Default: 1})

	return []*schema.Table{snapshots, llmEvents, masteryEvents, routingEvents, misconceptions, sequence}
}

// migrate creates or upgrades every table through ent's atlas-backed
// migration engine.
func migrate(ctx context.Context, s *Store) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables()...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
