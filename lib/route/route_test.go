package route

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/rmq/lib/message"
)

const sampleRoute = `{"orderTopicConf":"","queueDatas":[` +
	`{"brokerName":"broker-a","perm":6,"readQueueNums":4,"topicSysFlag":0,"writeQueueNums":4},` +
	`{"brokerName":"broker-b","perm":4,"readQueueNums":2,"topicSysFlag":0,"writeQueueNums":2}],` +
	`"brokerDatas":[` +
	`{"brokerAddrs":{0:"10.0.0.1:10911",1:"10.0.0.2:10911"},"brokerName":"broker-a","cluster":"DefaultCluster"},` +
	`{"brokerAddrs":{1:"10.0.0.3:10911"},"brokerName":"broker-b","cluster":"DefaultCluster"}],` +
	`"filterServerTable":{}}`

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare keys", `{0:"a",1:"b"}`, `{"0":"a","1":"b"}`},
		{"whitespace", `{ 0 : "a", 12:"b"}`, `{ "0" : "a", "12":"b"}`},
		{"negative", `{-1:"a"}`, `{"-1":"a"}`},
		{"valid json untouched", `{"0":"a","list":[1,2,3]}`, `{"0":"a","list":[1,2,3]}`},
		{"string content untouched", `{"remark":"{0:x,1:y}"}`, `{"remark":"{0:x,1:y}"}`},
		{"escaped quote", `{"r":"a\",1:b",2:"c"}`, `{"r":"a\",1:b","2":"c"}`},
		{"nested", `{"m":{0:{1:"x"}}}`, `{"m":{"0":{"1":"x"}}}`},
		{"empty", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RepairJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("RepairJSON(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTopicRouteData(t *testing.T) {
	data, err := ParseTopicRouteData([]byte(sampleRoute))
	if err != nil {
		t.Fatalf("Failed to parse route data: %v", err)
	}

	if len(data.QueueDatas) != 2 || len(data.BrokerDatas) != 2 {
		t.Fatalf("Unexpected route data %+v", data)
	}
	if data.BrokerDatas[0].MasterAddr() != "10.0.0.1:10911" {
		t.Errorf("Unexpected master address %q", data.BrokerDatas[0].MasterAddr())
	}
	if data.BrokerDatas[0].BrokerAddrs[1] != "10.0.0.2:10911" {
		t.Errorf("Unexpected slave address %q", data.BrokerDatas[0].BrokerAddrs[1])
	}
	if data.QueueDatas[0].Perm != PermRead|PermWrite {
		t.Errorf("Unexpected permission %v", data.QueueDatas[0].Perm)
	}

	if _, err := ParseTopicRouteData(nil); err == nil {
		t.Error("Expected an error for an empty body")
	}
	if _, err := ParseTopicRouteData([]byte(`{"queueDatas":`)); err == nil {
		t.Error("Expected an error for malformed data")
	}
}

func TestPermission(t *testing.T) {
	tests := []struct {
		perm Permission
		want string
	}{
		{PermRead | PermWrite, "RW-"},
		{PermRead, "R--"},
		{PermWrite | PermInherit, "-WX"},
		{PermPriority, "---"},
	}
	for _, tt := range tests {
		if got := tt.perm.String(); got != tt.want {
			t.Errorf("Permission(%d).String() = %s, want %s", tt.perm, got, tt.want)
		}
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a, err := ParseTopicRouteData([]byte(sampleRoute))
	if err != nil {
		t.Fatal(err)
	}
	b := a.Clone()
	b.QueueDatas[0], b.QueueDatas[1] = b.QueueDatas[1], b.QueueDatas[0]
	b.BrokerDatas[0], b.BrokerDatas[1] = b.BrokerDatas[1], b.BrokerDatas[0]
	b.FilterServerTable = map[string][]string{"x": {"y"}}

	if !a.Equal(b) {
		t.Error("Permuted route data should be equal")
	}

	// the clone is deep, a change must not leak into the original
	b.BrokerDatas[0].BrokerAddrs[0] = "10.0.0.9:10911"
	if a.Equal(b) {
		t.Error("Changed broker address should be detected")
	}

	c := a.Clone()
	c.QueueDatas[1].WriteQueueNums = 8
	if a.Equal(c) {
		t.Error("Changed queue count should be detected")
	}

	var nilRoute *TopicRouteData
	if nilRoute.Equal(a) || !nilRoute.Equal(nil) {
		t.Error("Unexpected nil comparison result")
	}
}

func TestSubscribeQueues(t *testing.T) {
	data, _ := ParseTopicRouteData([]byte(sampleRoute))
	mqs := data.SubscribeQueues("T")
	if len(mqs) != 6 {
		t.Fatalf("Expected 6 queues, got %d", len(mqs))
	}
	if mqs[4] != (message.MessageQueue{Topic: "T", BrokerName: "broker-b", QueueID: 0}) {
		t.Errorf("Unexpected queue %v", mqs[4])
	}

	data.QueueDatas[1].Perm = PermWrite
	if got := len(data.SubscribeQueues("T")); got != 4 {
		t.Errorf("Expected 4 readable queues, got %d", got)
	}
}

func TestPublishQueues(t *testing.T) {
	data := &TopicRouteData{
		QueueDatas: []QueueData{
			{BrokerName: "a", ReadQueueNums: 2, WriteQueueNums: 2, Perm: PermRead | PermWrite},
			{BrokerName: "b", ReadQueueNums: 2, WriteQueueNums: 1, Perm: PermRead | PermWrite},
			{BrokerName: "c", ReadQueueNums: 2, WriteQueueNums: 2, Perm: PermRead | PermWrite},
			{BrokerName: "d", ReadQueueNums: 2, WriteQueueNums: 2, Perm: PermRead},
		},
		BrokerDatas: []BrokerData{
			{BrokerName: "a", BrokerAddrs: map[int64]string{0: "a:1"}},
			{BrokerName: "b", BrokerAddrs: map[int64]string{0: "b:1"}},
			{BrokerName: "c", BrokerAddrs: map[int64]string{0: "", 1: "c:2"}},
			{BrokerName: "d", BrokerAddrs: map[int64]string{0: "d:1"}},
		},
	}

	want := []message.MessageQueue{
		{Topic: "T", BrokerName: "b", QueueID: 0},
		{Topic: "T", BrokerName: "a", QueueID: 0},
		{Topic: "T", BrokerName: "a", QueueID: 1},
	}
	if got := data.PublishQueues("T"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	info := data.PublishInfo("T")
	if info.OrderTopic || !info.Ok() {
		t.Errorf("Unexpected publish info %+v", info)
	}
}

func TestOrderTopicConf(t *testing.T) {
	want := []message.MessageQueue{
		{Topic: "T", BrokerName: "broker-b", QueueID: 0},
		{Topic: "T", BrokerName: "broker-b", QueueID: 1},
		{Topic: "T", BrokerName: "broker-a", QueueID: 0},
	}
	if got := ParseOrderTopicConf("T", "broker-b:2;broker-a:1"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := ParseOrderTopicConf("T", "broken;x:y;:3;broker-a:1;"); len(got) != 1 {
		t.Errorf("Expected malformed entries to be skipped, got %v", got)
	}

	// counts above MaxOrderQueueNums are skipped like negative ones
	for _, conf := range []string{"broker-a:3000000000", "broker-a:65536", "broker-a:-1"} {
		if got := ParseOrderTopicConf("T", conf); len(got) != 0 {
			t.Errorf("Expected %q to be skipped, got %d queues", conf, len(got))
		}
	}
	if got := ParseOrderTopicConf("T", "broker-a:65535"); len(got) != MaxOrderQueueNums || got[len(got)-1].QueueID != MaxOrderQueueNums-1 {
		t.Errorf("Expected %d queues for the maximum count, got %d", MaxOrderQueueNums, len(got))
	}

	// the order configuration wins over the queue data
	data, _ := ParseTopicRouteData([]byte(sampleRoute))
	data.OrderTopicConf = "broker-b:2;broker-a:1"
	if got := data.PublishQueues("T"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if !data.PublishInfo("T").OrderTopic {
		t.Error("Expected order topic flag")
	}
}

func TestSelectBrokerAddr(t *testing.T) {
	master := BrokerData{BrokerAddrs: map[int64]string{0: "m:1", 1: "s:1"}}
	if got := master.SelectBrokerAddr(); got != "m:1" {
		t.Errorf("Expected master address, got %q", got)
	}

	slave := BrokerData{BrokerAddrs: map[int64]string{0: "", 1: "s:1", 2: ""}}
	if got := slave.SelectBrokerAddr(); got != "s:1" {
		t.Errorf("Expected slave fallback, got %q", got)
	}

	none := BrokerData{BrokerAddrs: map[int64]string{0: ""}}
	if got := none.SelectBrokerAddr(); got != "" {
		t.Errorf("Expected no address, got %q", got)
	}
}

func TestWithQueueLimit(t *testing.T) {
	data, _ := ParseTopicRouteData([]byte(sampleRoute))
	limited := data.WithQueueLimit(3)

	if limited.QueueDatas[0].ReadQueueNums != 3 || limited.QueueDatas[0].WriteQueueNums != 3 {
		t.Errorf("Expected counts clamped to 3, got %+v", limited.QueueDatas[0])
	}
	if limited.QueueDatas[1].ReadQueueNums != 2 {
		t.Errorf("Counts below the limit must be kept, got %+v", limited.QueueDatas[1])
	}
	if data.QueueDatas[0].ReadQueueNums != 4 {
		t.Error("WithQueueLimit modified the original")
	}
}

func TestTopicPublishInfoOk(t *testing.T) {
	var info *TopicPublishInfo
	if info.Ok() {
		t.Error("nil publish info must not be ok")
	}
	if (&TopicPublishInfo{}).Ok() {
		t.Error("empty publish info must not be ok")
	}
}
