package hydrate

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type size struct {
	ID    int64           `json:"id"`
	Price decimal.Decimal `json:"price"`
}

type store struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Logo  string `json:"logo"`
	Sizes []size `json:"sizes,omitempty"`
}

func TestDecodeJSONKeepsDecimalPrecision(t *testing.T) {
	decoder := NewDecoder[store]()
	got, err := decoder.DecodeJSON(Context{Resource: "stores", ID: "1"},
		[]byte(`{"id":1,"name":"Loja","logo":"l","sizes":[{"id":2,"price":19.990000000000001}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 1 || got.Name != "Loja" || len(got.Sizes) != 1 {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Sizes[0].Price.String() != "19.990000000000001" {
		t.Fatalf("price lost precision: %s", got.Sizes[0].Price)
	}
}

func TestHooksRunInOrder(t *testing.T) {
	var seen []string
	decoder := NewDecoder[store](
		WithPreHook[store](NullToEmpty("logo")),
		WithPreHook[store](func(ctx Context, payload map[string]any) (map[string]any, error) {
			seen = append(seen, "pre:"+ctx.String())
			payload["name"] = strings.ToUpper(payload["name"].(string))
			return payload, nil
		}),
		WithPostHook[store](func(ctx Context, s *store) error {
			seen = append(seen, "post")
			if s.ID == 0 {
				return errors.New("missing id")
			}
			return nil
		}),
	)

	input := map[string]any{"id": 3, "name": "loja", "logo": nil}
	got, err := decoder.Decode(Context{Resource: "stores", ID: "3"}, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "LOJA" || got.Logo != "" {
		t.Fatalf("unexpected record %+v", got)
	}
	if input["name"] != "loja" {
		t.Fatalf("caller payload was modified")
	}
	if strings.Join(seen, ",") != "pre:stores/3,post" {
		t.Fatalf("unexpected hook order %v", seen)
	}

	if _, err := decoder.Decode(Context{Resource: "stores"}, map[string]any{"name": "x"}); err == nil || !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook error, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	decoder := NewDecoder[store](WithDisallowUnknownFields[store]())
	ctx := Context{Resource: "stores", ID: "9"}

	if _, err := decoder.Decode(ctx, nil); err == nil {
		t.Fatalf("expected nil payload error")
	}
	if _, err := decoder.DecodeJSON(ctx, []byte(`[1,2]`)); err == nil {
		t.Fatalf("expected non-object error")
	}
	if _, err := decoder.DecodeJSON(ctx, []byte(`null`)); err == nil {
		t.Fatalf("expected null error")
	}
	_, err := decoder.DecodeJSON(ctx, []byte(`{"id":1,"extra":true}`))
	if err == nil || !strings.Contains(err.Error(), "stores/9") {
		t.Fatalf("expected unknown field error naming the record, got %v", err)
	}
}

func TestCustomDecoder(t *testing.T) {
	decoder := NewDecoder[store](WithCustomDecoder[store](func(_ Context, payload map[string]any) (store, error) {
		return store{Name: payload["title"].(string)}, nil
	}))
	got, err := decoder.DecodeJSON(Context{Resource: "stores"}, []byte(`{"title":"custom"}`))
	if err != nil || got.Name != "custom" {
		t.Fatalf("unexpected %+v %v", got, err)
	}
}
