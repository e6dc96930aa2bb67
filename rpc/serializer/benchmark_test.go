package serializer

import (
	"testing"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// benchmarkCommands returns a set of commands for targeted benchmarking
func benchmarkCommands() map[string]*common.Command {
	route := common.NewRequest(common.ReqGetRouteInfoByTopic, common.GetRouteInfoRequestHeader{Topic: "TopicTest"}, nil)

	send := common.NewRequest(common.ReqSendMessage, common.SendMessageRequestHeader{
		ProducerGroup: "ProducerGroupName",
		Topic:         "TopicTest",
		DefaultTopic:  "TBW102",
		QueueID:       3,
		BornTimestamp: 1700000000000,
		Properties:    "TAGS\x01TagA\x02KEYS\x01OrderID188\x02WAIT\x01true\x02",
	}, make([]byte, 1024))

	sendV2 := common.NewRequest(common.ReqSendMessageV2, common.SendMessageRequestHeader{
		ProducerGroup: "ProducerGroupName",
		Topic:         "TopicTest",
		QueueID:       3,
	}.V2(), make([]byte, 1024))

	response := common.NewResponse(route, common.ResSuccess, "")
	response.Body = make([]byte, 16*1024)

	return map[string]*common.Command{
		"Route":      route,
		"Send":       send,
		"SendV2":     sendV2,
		"LargeReply": response,
	}
}

// BenchmarkSerialize benchmarks header serialization for all codecs
func BenchmarkSerialize(b *testing.B) {
	commands := benchmarkCommands()

	for name, factory := range testSerializers {
		for cmdName, cmd := range commands {
			b.Run(name+"_"+cmdName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(&cmd.Header); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks header deserialization for all codecs
func BenchmarkDeserialize(b *testing.B) {
	commands := benchmarkCommands()

	for name, factory := range testSerializers {
		for cmdName, cmd := range commands {
			b.Run(name+"_"+cmdName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(&cmd.Header)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var h common.Header
					if err := serializer.Deserialize(data, &h); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkFrame benchmarks a full encode and decode of a frame
func BenchmarkFrame(b *testing.B) {
	commands := benchmarkCommands()

	for name, factory := range testSerializers {
		for cmdName, cmd := range commands {
			b.Run(name+"_"+cmdName, func(b *testing.B) {
				codec := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					frame, err := EncodeFrame(cmd, codec)
					if err != nil {
						b.Fatalf("Failed to encode: %v", err)
					}
					if _, err := DecodeFrame(frame); err != nil {
						b.Fatalf("Failed to decode: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized header size for each command
func BenchmarkSize(b *testing.B) {
	commands := benchmarkCommands()

	for name, factory := range testSerializers {
		serializer := factory()

		for cmdName, cmd := range commands {
			b.Run(name+"_"+cmdName, func(b *testing.B) {
				data, err := serializer.Serialize(&cmd.Header)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
