package receiver

import (
	"time"

	"github.com/poslog/poslog/pkg/models"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
)

// scenarioAttrKey is the log attribute that maps to scenario grouping.
const scenarioAttrKey = "scenario_id"

// convertResourceLogs flattens an OTLP export payload into insertable
// records. Records with empty bodies are skipped; everything else gets
// the same defaulting the REST ingest path applies.
func convertResourceLogs(resourceLogs []*logspb.ResourceLogs) []models.InsertLog {
	var out []models.InsertLog

	for _, rl := range resourceLogs {
		label := "unknown"
		source := ""
		if res := rl.GetResource(); res != nil {
			for _, attr := range res.GetAttributes() {
				switch attr.GetKey() {
				case "service.name":
					if v := attr.GetValue().GetStringValue(); v != "" {
						label = v
					}
				case "host.name":
					source = attr.GetValue().GetStringValue()
				}
			}
		}

		for _, sl := range rl.GetScopeLogs() {
			for _, rec := range sl.GetLogRecords() {
				message := rec.GetBody().GetStringValue()
				if message == "" {
					continue
				}

				level := rec.GetSeverityText()
				if level == "" {
					level = "INFO"
				}

				timestamp := ""
				if ns := rec.GetTimeUnixNano(); ns != 0 {
					timestamp = time.Unix(0, int64(ns)).UTC().Format(time.RFC3339Nano)
				}

				in := models.InsertLog{
					Level:     level,
					Label:     label,
					Message:   message,
					Timestamp: timestamp,
					Source:    source,
				}

				if attrs := rec.GetAttributes(); len(attrs) > 0 {
					ctx := make(map[string]any, len(attrs))
					for _, attr := range attrs {
						if attr.GetKey() == scenarioAttrKey {
							scenario := attr.GetValue().GetStringValue()
							if models.ValidateScenarioID(scenario) == nil {
								in.ScenarioID = scenario
							}
							continue
						}
						ctx[attr.GetKey()] = anyValueToGo(attr.GetValue())
					}
					if len(ctx) > 0 {
						in.Context = ctx
					}
				}

				out = append(out, in)
			}
		}
	}

	return out
}

// anyValueToGo converts an OTLP AnyValue to the plain Go value that ends
// up JSON-serialized into the record context.
func anyValueToGo(v *commonpb.AnyValue) any {
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_ArrayValue:
		items := make([]any, 0, len(val.ArrayValue.GetValues()))
		for _, item := range val.ArrayValue.GetValues() {
			items = append(items, anyValueToGo(item))
		}
		return items
	case *commonpb.AnyValue_KvlistValue:
		m := make(map[string]any, len(val.KvlistValue.GetValues()))
		for _, kv := range val.KvlistValue.GetValues() {
			m[kv.GetKey()] = anyValueToGo(kv.GetValue())
		}
		return m
	default:
		return nil
	}
}
