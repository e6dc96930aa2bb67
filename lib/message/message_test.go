package message

import (
	"reflect"
	"testing"
)

func TestMessageQueueIdentity(t *testing.T) {
	a := MessageQueue{Topic: "T", BrokerName: "broker-a", QueueID: 3}
	b := MessageQueue{Topic: "T", BrokerName: "broker-a", QueueID: 3}

	if a != b {
		t.Error("Expected equal queues to compare equal")
	}

	set := map[MessageQueue]bool{a: true}
	if !set[b] {
		t.Error("Expected queue to be usable as map key")
	}

	want := "MessageQueue [topic=T, brokerName=broker-a, queueId=3]"
	if a.String() != want {
		t.Errorf("Expected %q, got %q", want, a.String())
	}
}

func TestMessageQueueLess(t *testing.T) {
	tests := []struct {
		name string
		a, b MessageQueue
		want bool
	}{
		{"topic", MessageQueue{Topic: "A"}, MessageQueue{Topic: "B"}, true},
		{"broker", MessageQueue{Topic: "A", BrokerName: "b"}, MessageQueue{Topic: "A", BrokerName: "a"}, false},
		{"queue", MessageQueue{Topic: "A", BrokerName: "a", QueueID: 1}, MessageQueue{Topic: "A", BrokerName: "a", QueueID: 2}, true},
		{"equal", MessageQueue{Topic: "A"}, MessageQueue{Topic: "A"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewMessage(t *testing.T) {
	m := NewMessage("T", []byte("body"), "TagA", "k1", "", "k2")

	if m.Tags() != "TagA" {
		t.Errorf("Expected tags TagA, got %q", m.Tags())
	}
	if !reflect.DeepEqual(m.Keys(), []string{"k1", "k2"}) {
		t.Errorf("Unexpected keys %v", m.Keys())
	}
	if v, _ := m.GetProperty(PropertyWaitStoreMsgOK); v != "true" {
		t.Errorf("Expected WAIT=true, got %q", v)
	}
	if _, ok := m.ShardingKey(); ok {
		t.Error("Expected no sharding key")
	}

	m.SetShardingKey("order-1")
	if k, ok := m.ShardingKey(); !ok || k != "order-1" {
		t.Errorf("Expected sharding key order-1, got %q", k)
	}

	m.SetDelayTimeLevel(3)
	if v, _ := m.GetProperty(PropertyDelayTimeLevel); v != "3" {
		t.Errorf("Expected DELAY=3, got %q", v)
	}

	empty := NewMessage("T", nil, "")
	if _, ok := empty.GetProperty(PropertyTags); ok {
		t.Error("Empty tags should not be stored")
	}
	if empty.Keys() != nil {
		t.Error("Expected no keys")
	}
}

func TestPropertyCodec(t *testing.T) {
	props := map[string]string{
		PropertyTags:        "TagA",
		PropertyKeys:        "k1 k2",
		PropertyShardingKey: "order-1",
		"EMPTY":             "",
	}

	encoded := MarshalProperties(props)
	decoded := UnmarshalProperties(encoded)

	if !reflect.DeepEqual(props, decoded) {
		t.Errorf("Expected %v, got %v", props, decoded)
	}

	if MarshalProperties(nil) != "" {
		t.Error("Expected empty string for nil properties")
	}
	if len(UnmarshalProperties("")) != 0 {
		t.Error("Expected no properties for empty string")
	}

	// a pair without separator is skipped
	got := UnmarshalProperties("broken\x02TAGS\x01x\x02")
	if !reflect.DeepEqual(got, map[string]string{"TAGS": "x"}) {
		t.Errorf("Unexpected properties %v", got)
	}

	single := MarshalProperties(map[string]string{"TAGS": "x"})
	if single != "TAGS\x01x\x02" {
		t.Errorf("Unexpected encoding %q", single)
	}
}

func TestSysFlag(t *testing.T) {
	f := SysFlagCompressed | SysFlagTransactionPreparedType
	if !f.Has(SysFlagCompressed) {
		t.Error("Expected compressed bit")
	}
	if f.Has(SysFlagMultiTags) {
		t.Error("Unexpected multi tags bit")
	}
	if int32(SysFlagTransactionRollbackType) != 12 {
		t.Errorf("Expected rollback type 12, got %d", SysFlagTransactionRollbackType)
	}
}
