package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/serializer"
	"github.com/stretchr/testify/require"
)

func TestInvokeRoundTrip(t *testing.T) {
	for _, codec := range []string{"json", "compact"} {
		t.Run(codec, func(t *testing.T) {
			srv := newRawServer(t)
			config := testClientConfig()
			config.Codec = codec
			client := newTestClient(t, &testConnector{}, config)

			go func() {
				conn := <-srv.conns
				defer conn.Close()
				for {
					req, err := serializer.ReadFrame(conn)
					if err != nil {
						return
					}
					if err := respond(conn, req, "echo:"+string(req.Body)); err != nil {
						return
					}
				}
			}()

			for i := 0; i < 3; i++ {
				body := fmt.Sprintf("request-%d", i)
				res, err := client.Invoke(context.Background(), srv.addr(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, []byte(body)))
				require.NoError(t, err)
				require.True(t, res.IsResponse())
				require.Equal(t, "echo:"+body, string(res.Body))
				require.Equal(t, int32(i+1), res.Header.Opaque)
			}
		})
	}
}

func TestConcurrentConnectSharesOneAttempt(t *testing.T) {
	srv := newRawServer(t)
	connector := &testConnector{delay: 50 * time.Millisecond}
	client := newTestClient(t, connector, testClientConfig())

	const callers = 20
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := client.GetOrCreateConnection(context.Background(), srv.addr())
			if err != nil {
				t.Errorf("GetOrCreateConnection failed: %v", err)
				return
			}
			ids[i] = conn.ID()
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), connector.connects.Load())
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestConnectFailureIsNotCached(t *testing.T) {
	srv := newRawServer(t)
	connector := &testConnector{}
	connector.failures.Store(1)
	client := newTestClient(t, connector, testClientConfig())

	_, err := client.GetOrCreateConnection(context.Background(), srv.addr())
	require.Error(t, err)

	conn, err := client.GetOrCreateConnection(context.Background(), srv.addr())
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Equal(t, int32(2), connector.connects.Load())
}

func TestConnectWaitCanceled(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{delay: time.Second}, testClientConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetOrCreateConnection(ctx, srv.addr())
	require.ErrorIs(t, err, common.ErrCanceled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeoutRemovesPendingEntry(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())
	conn := connect(t, client, srv.addr())
	server := srv.accept(t)

	// the first request is read but never answered
	first := make(chan *common.Command, 1)
	go func() {
		req, err := serializer.ReadFrame(server)
		if err == nil {
			first <- req
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := conn.Invoke(ctx, common.NewRequest(common.ReqGetRouteInfoByTopic, nil, []byte("first")))
	require.ErrorIs(t, err, common.ErrCanceled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, conn.pending.Size())

	req := <-first
	require.Equal(t, int32(1), req.Header.Opaque)

	// reusing the opaque of the timed out request must complete the new request
	conn.nextOpaque.Store(0)
	go func() {
		req, err := serializer.ReadFrame(server)
		if err == nil {
			respond(server, req, "second")
		}
	}()

	res, err := conn.Invoke(context.Background(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, []byte("second")))
	require.NoError(t, err)
	require.Equal(t, int32(1), res.Header.Opaque)
	require.Equal(t, "second", string(res.Body))
	require.Equal(t, 0, conn.pending.Size())
}

func TestUnknownResponseIsDropped(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())
	conn := connect(t, client, srv.addr())
	server := srv.accept(t)

	go func() {
		req, err := serializer.ReadFrame(server)
		if err != nil {
			return
		}
		stray := common.NewResponse(&common.Command{Header: common.Header{Opaque: 999}}, common.ResSuccess, "")
		if err := serializer.WriteFrame(server, stray, serializer.NewJSONSerializer()); err != nil {
			return
		}
		respond(server, req, "ok")
	}()

	res, err := conn.Invoke(context.Background(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, nil))
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Body))
}

func TestDisconnectFailsAllPending(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())
	conn := connect(t, client, srv.addr())
	server := srv.accept(t)

	const requests = 10
	received := make(chan struct{}, requests)
	go func() {
		for i := 0; i < requests; i++ {
			if _, err := serializer.ReadFrame(server); err != nil {
				return
			}
			received <- struct{}{}
		}
	}()

	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		go func() {
			_, err := conn.Invoke(context.Background(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, nil))
			errs <- err
		}()
	}

	for i := 0; i < requests; i++ {
		<-received
	}
	server.Close()

	for i := 0; i < requests; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, common.ErrDisconnected)
		case <-time.After(5 * time.Second):
			t.Fatal("Pending request was not completed after disconnect")
		}
	}

	<-conn.Done()
	require.Equal(t, 0, conn.pending.Size())

	_, err := conn.Invoke(context.Background(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, nil))
	require.ErrorIs(t, err, common.ErrDisconnected)
}

func TestReconnectAfterDisconnect(t *testing.T) {
	srv := newRawServer(t)
	connector := &testConnector{}
	client := newTestClient(t, connector, testClientConfig())

	first := connect(t, client, srv.addr())
	srv.accept(t).Close()
	<-first.Done()

	second := connect(t, client, srv.addr())
	require.NotEqual(t, first.ID(), second.ID())
	require.Equal(t, int32(2), connector.connects.Load())
}

func TestWriteOrder(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())
	conn := connect(t, client, srv.addr())
	server := srv.accept(t)

	const messages = 200
	for i := 0; i < messages; i++ {
		err := conn.InvokeOneway(context.Background(), common.NewRequest(common.ReqSendMessage, nil, []byte(fmt.Sprintf("%d", i))))
		require.NoError(t, err)
	}

	for i := 0; i < messages; i++ {
		req, err := serializer.ReadFrame(server)
		require.NoError(t, err)
		require.True(t, req.IsOneway())
		require.Equal(t, fmt.Sprintf("%d", i), string(req.Body))
	}
}

func TestProcessorDispatch(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())

	addrs := make(chan string, 1)
	client.RegisterProcessor(common.ReqCheckTransactionState, func(addr string, req *common.Command) *common.Command {
		addrs <- addr
		res := common.NewResponse(req, common.ResSuccess, "")
		res.Body = append([]byte("checked:"), req.Body...)
		return res
	})

	connect(t, client, srv.addr())
	server := srv.accept(t)

	codec := serializer.NewJSONSerializer()

	// codes without processor are dropped
	unknown := common.NewRequest(common.ReqNotifyConsumerIdsChanged, nil, nil)
	unknown.Header.Opaque = 41
	require.NoError(t, serializer.WriteFrame(server, unknown, codec))

	req := common.NewRequest(common.ReqCheckTransactionState, nil, []byte("tx"))
	req.Header.Opaque = 42
	require.NoError(t, serializer.WriteFrame(server, req, codec))

	res, err := serializer.ReadFrame(server)
	require.NoError(t, err)
	require.True(t, res.IsResponse())
	require.Equal(t, int32(42), res.Header.Opaque)
	require.Equal(t, "checked:tx", string(res.Body))
	require.Equal(t, srv.addr(), <-addrs)
}

func TestSignedRequest(t *testing.T) {
	srv := newRawServer(t)
	config := testClientConfig()
	config.Credentials = common.Credentials{AccessKey: "ak", SecretKey: "sk", SecurityToken: "token"}
	client := newTestClient(t, &testConnector{}, config)
	conn := connect(t, client, srv.addr())
	server := srv.accept(t)

	received := make(chan *common.Command, 1)
	go func() {
		req, err := serializer.ReadFrame(server)
		if err != nil {
			return
		}
		received <- req
		respond(server, req, "")
	}()

	req := common.NewRequest(common.ReqGetRouteInfoByTopic, common.GetRouteInfoRequestHeader{Topic: "t"}, []byte("body"))
	_, err := conn.Invoke(context.Background(), req)
	require.NoError(t, err)

	got := <-received
	require.Equal(t, "ak", got.ExtField(FieldAccessKey))
	require.Equal(t, "token", got.ExtField(FieldSecurityToken))

	// values in key order: AccessKey, SecurityToken, topic
	want := CalculateSignature([]byte("aktokent"+"body"), "sk")
	require.Equal(t, want, got.ExtField(FieldSignature))
}

func TestShutdown(t *testing.T) {
	srv := newRawServer(t)
	c, err := NewBaseClientTransport(&testConnector{}, testClientConfig())
	require.NoError(t, err)
	client := c.(*clientTransport)

	conn := connect(t, client, srv.addr())
	server := srv.accept(t)
	go func() {
		// read and never answer
		for {
			if _, err := serializer.ReadFrame(server); err != nil {
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := conn.Invoke(context.Background(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, nil))
		done <- err
	}()

	require.Eventually(t, func() bool { return conn.pending.Size() == 1 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, client.Shutdown())
	require.NoError(t, client.Shutdown())

	require.ErrorIs(t, <-done, common.ErrDisconnected)

	_, err = client.Invoke(context.Background(), srv.addr(), common.NewRequest(common.ReqGetRouteInfoByTopic, nil, nil))
	require.ErrorIs(t, err, common.ErrShutdown)
}

func TestWriteMetrics(t *testing.T) {
	srv := newRawServer(t)
	client := newTestClient(t, &testConnector{}, testClientConfig())
	connect(t, client, srv.addr())

	var buf bytes.Buffer
	client.WriteMetrics(&buf)
	out := buf.String()
	require.True(t, strings.Contains(out, "rmq_remoting_connects_total 1"), out)
	require.True(t, strings.Contains(out, "rmq_remoting_connections 1"), out)
}

func TestInvalidCodec(t *testing.T) {
	config := testClientConfig()
	config.Codec = "xml"
	_, err := NewBaseClientTransport(&testConnector{}, config)
	require.True(t, errors.Is(err, common.ErrInvalidHeaderCodec))
}
