package callback

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode - единый признак того, что токен прочитать нельзя:
// обрезан, подделан, чужой или устарел.
var ErrDecode = errors.New("callback: token cannot be decoded")

const (
	flowSeparator = '|'
	macSeparator  = '.'
	macSize       = 16

	// MaxEncodedSize ограничивает размер закодированного токена
	MaxEncodedSize = 2048
)

type wireBody struct {
	Caller  int64   `json:"c"`
	Cancel  bool    `json:"x,omitempty"`
	Payload Payload `json:"p,omitempty"`
}

// Codec сериализует токены в формат "<flow>|<body>.<mac>".
// flow идёт первым, чтобы маршрутизация не требовала полного декодирования.
type Codec struct {
	secret []byte
}

// NewCodec создаёт кодек с ключом подписи
func NewCodec(secret []byte) *Codec {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key}
}

// Encode детерминированно кодирует токен
func (c *Codec) Encode(t Token) ([]byte, error) {
	if t.Flow == "" || strings.ContainsRune(t.Flow, flowSeparator) {
		return nil, fmt.Errorf("encode token: invalid flow %q", t.Flow)
	}

	// encoding/json сортирует ключи map, поэтому результат детерминирован
	body, err := json.Marshal(wireBody{Caller: t.Caller, Cancel: t.Cancel, Payload: t.Payload})
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(t.Flow)
	buf.WriteByte(flowSeparator)
	buf.WriteString(base64.RawURLEncoding.EncodeToString(body))
	mac := c.sign(buf.Bytes())
	buf.WriteByte(macSeparator)
	buf.WriteString(base64.RawURLEncoding.EncodeToString(mac))

	if buf.Len() > MaxEncodedSize {
		return nil, fmt.Errorf("encode token: %d bytes exceeds limit %d", buf.Len(), MaxEncodedSize)
	}
	return buf.Bytes(), nil
}

// Decode восстанавливает токен. Любая проблема приводит к ErrDecode, паники не выходят наружу.
func (c *Codec) Decode(data []byte) (tok Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tok, err = Token{}, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	if len(data) == 0 || len(data) > MaxEncodedSize {
		return Token{}, fmt.Errorf("%w: bad length %d", ErrDecode, len(data))
	}

	dot := bytes.LastIndexByte(data, macSeparator)
	if dot < 0 {
		return Token{}, fmt.Errorf("%w: missing signature", ErrDecode)
	}
	signed, macPart := data[:dot], data[dot+1:]

	mac, err := base64.RawURLEncoding.DecodeString(string(macPart))
	if err != nil || !hmac.Equal(mac, c.sign(signed)) {
		return Token{}, fmt.Errorf("%w: signature mismatch", ErrDecode)
	}

	sep := bytes.IndexByte(signed, flowSeparator)
	if sep <= 0 {
		return Token{}, fmt.Errorf("%w: missing flow", ErrDecode)
	}

	raw, err := base64.RawURLEncoding.DecodeString(string(signed[sep+1:]))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var body wireBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	payload := make(Payload, len(body.Payload))
	for k, v := range body.Payload {
		switch v.(type) {
		case string, bool:
			payload[k] = v
		default:
			return Token{}, fmt.Errorf("%w: payload %s has type %T", ErrDecode, k, v)
		}
	}

	return Token{
		Flow:    string(signed[:sep]),
		Caller:  body.Caller,
		Payload: payload,
		Cancel:  body.Cancel,
	}, nil
}

// FlowOf извлекает идентификатор флоу без проверки подписи
func FlowOf(data []byte) string {
	sep := bytes.IndexByte(data, flowSeparator)
	if sep <= 0 {
		return ""
	}
	return string(data[:sep])
}

func (c *Codec) sign(data []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(data)
	return h.Sum(nil)[:macSize]
}
