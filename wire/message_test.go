package wire

import "testing"

func TestNewMessageRejectsEmptyChain(t *testing.T) {
	_, err := NewMessage(Profile{ID: []byte("u")}, []byte("m"), []byte("p"))
	if err != ErrEmptyChain {
		t.Fatalf("NewMessage error = %v, want %v", err, ErrEmptyChain)
	}
}

func TestNewMessageImageChain(t *testing.T) {
	url := "https://example.com/a.png"
	msg, err := NewMessage(
		Profile{ID: []byte("u")}, []byte("m"), []byte("p"),
		MessageType{Image: &ImageContent{ID: []byte("img-1"), URL: &url}},
	)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if len(msg.Chain) != 1 || msg.Chain[0].Image == nil {
		t.Fatalf("chain = %+v, want one image entry", msg.Chain)
	}
}
