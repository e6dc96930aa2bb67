package allocate

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/ValentinKolb/rmq/lib/allocate"
	"github.com/ValentinKolb/rmq/lib/message"
)

func TestParseQueues(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []message.MessageQueue
		wantErr bool
	}{
		{"empty", "", []message.MessageQueue{}, false},
		{"two queues", "broker-a:0, broker-b:3", []message.MessageQueue{
			{Topic: "T", BrokerName: "broker-a", QueueID: 0},
			{Topic: "T", BrokerName: "broker-b", QueueID: 3},
		}, false},
		{"missing id", "broker-a", nil, true},
		{"invalid id", "broker-a:x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQueues("T", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWriteAllocation(t *testing.T) {
	mqs := []message.MessageQueue{
		{Topic: "T", BrokerName: "broker-a", QueueID: 0},
		{Topic: "T", BrokerName: "broker-a", QueueID: 1},
		{Topic: "T", BrokerName: "broker-a", QueueID: 2},
	}

	var buf bytes.Buffer
	writeAllocation(&buf, allocate.NewAveragely(), "group", mqs, []string{"c1", "c2"})
	out := buf.String()

	for _, want := range []string{"strategy AVG: 3 queues, 2 consumers", "c1 (2)", "c2 (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}
