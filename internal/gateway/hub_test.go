package gateway

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/pkg/constants"
	identity "dispatch/internal/service/identity/domain"
)

func uintPtr(v uint) *uint { return &v }

func newRegisteredClient(t *testing.T, hub *Hub, channel string) *Client {
	t.Helper()
	client := &Client{hub: hub, send: make(chan []byte, 4), channel: channel}
	if !hub.Attach(client) {
		t.Fatal("hub rejected client while running")
	}
	return client
}

func TestHub_AttachAfterStop(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	client := &Client{hub: hub, send: make(chan []byte, 4), channel: constants.AdminChannel}
	attached := make(chan bool, 1)
	go func() { attached <- hub.Attach(client) }()

	select {
	case ok := <-attached:
		if ok {
			t.Error("stopped hub must reject new clients")
		}
	case <-time.After(time.Second):
		t.Fatal("Attach blocked on a stopped hub")
	}
}

func TestHub_BroadcastByChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	storeClient := newRegisteredClient(t, hub, constants.StoreChannel(3))
	adminClient := newRegisteredClient(t, hub, constants.AdminChannel)
	otherClient := newRegisteredClient(t, hub, constants.StoreChannel(4))

	hub.Broadcast(constants.StoreChannel(3), []byte(`{"name":"order-created"}`))
	hub.Broadcast(constants.AdminChannel, []byte(`{"name":"order-created"}`))

	select {
	case msg := <-storeClient.send:
		if string(msg) != `{"name":"order-created"}` {
			t.Errorf("unexpected payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("store client did not receive broadcast")
	}

	select {
	case <-adminClient.send:
	case <-time.After(time.Second):
		t.Fatal("admin client did not receive broadcast")
	}

	select {
	case msg := <-otherClient.send:
		t.Errorf("other store must not receive the event, got %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{hub: hub, send: make(chan []byte), channel: constants.AdminChannel}
	hub.register <- client

	// 无人消费 send，第一条广播即触发淘汰并关闭通道
	hub.Broadcast(constants.AdminChannel, []byte("x"))

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel for dropped client")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}

func TestAuthorizeChannel(t *testing.T) {
	cases := []struct {
		name    string
		actor   identity.Identity
		channel string
		want    bool
	}{
		{"admin joins admin", identity.Identity{Role: identity.RoleAdmin}, constants.AdminChannel, true},
		{"admin joins any store", identity.Identity{Role: identity.RoleAdmin}, constants.StoreChannel(9), true},
		{"manager joins own store", identity.Identity{Role: identity.RoleStoreManager, StoreID: uintPtr(3)}, constants.StoreChannel(3), true},
		{"manager joins other store", identity.Identity{Role: identity.RoleStoreManager, StoreID: uintPtr(3)}, constants.StoreChannel(4), false},
		{"manager joins admin", identity.Identity{Role: identity.RoleStoreManager, StoreID: uintPtr(3)}, constants.AdminChannel, false},
		{"partner joins own store", identity.Identity{Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}, constants.StoreChannel(3), true},
		{"customer joins store", identity.Identity{Role: identity.RoleCustomer, CustomerID: uintPtr(7)}, constants.StoreChannel(3), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizeChannel(tc.actor, tc.channel)
			if tc.want && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tc.want && err == nil {
				t.Error("expected denial")
			}
		})
	}
}
