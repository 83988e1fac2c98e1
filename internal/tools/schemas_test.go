package tools

import (
	"encoding/json"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/pipeline"
)

func TestEmptyGalaxyResponseWireShape(t *testing.T) {
	data, err := json.Marshal(NewGalaxyResponse(nil))
	if err != nil {
		t.Fatalf("Failed to marshal GalaxyResponse: %v", err)
	}

	want := `{"status":"success","nodes":[],"cluster_names":{}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestGalaxyResponseNodeFields(t *testing.T) {
	galaxy := &pipeline.Galaxy{
		Nodes: []pipeline.Node{
			{ID: 0, Label: "hello", X: 1, Y: 2, Z: 3, Category: 1, ClusterLabel: "Greeting Words"},
		},
		ClusterNames: map[int]string{1: "Greeting Words"},
	}

	data, err := json.Marshal(NewGalaxyResponse(galaxy))
	if err != nil {
		t.Fatalf("Failed to marshal GalaxyResponse: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON into map: %v", err)
	}

	nodes, ok := jsonMap["nodes"].([]interface{})
	if !ok || len(nodes) != 1 {
		t.Fatalf("Expected one node, got %v", jsonMap["nodes"])
	}
	node := nodes[0].(map[string]interface{})
	for _, key := range []string{"id", "label", "x", "y", "z", "category", "cluster_label"} {
		if _, ok := node[key]; !ok {
			t.Errorf("Expected node key %q in %v", key, node)
		}
	}

	names := jsonMap["cluster_names"].(map[string]interface{})
	if names["1"] != "Greeting Words" {
		t.Errorf("Expected cluster_names keyed by string id, got %v", names)
	}
	if _, ok := jsonMap["error"]; ok {
		t.Errorf("Did not expect error key on success")
	}
}

func TestClearNotesRequestField(t *testing.T) {
	var req ClearNotesRequest
	if err := json.Unmarshal([]byte(`{"confirmation":"confirm"}`), &req); err != nil {
		t.Fatalf("Failed to unmarshal ClearNotesRequest: %v", err)
	}
	if req.Confirmation != ClearConfirmation {
		t.Errorf("Expected confirmation %q, got %q", ClearConfirmation, req.Confirmation)
	}
}
