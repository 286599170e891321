package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

// Attribute codec: store.Value scalars to and from DynamoDB's native
// AttributeValue representation (S, N and B members).

func encodeValue(v store.Value) types.AttributeValue {
	switch v.Kind() {
	case store.KindInt:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.Int(), 10)}
	case store.KindBytes:
		return &types.AttributeValueMemberB{Value: v.Bytes()}
	default:
		return &types.AttributeValueMemberS{Value: v.Str()}
	}
}

func decodeValue(av types.AttributeValue) (store.Value, error) {
	switch m := av.(type) {
	case *types.AttributeValueMemberS:
		return store.String(m.Value), nil
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseInt(m.Value, 10, 64)
		if err != nil {
			return store.Value{}, fmt.Errorf("dynamo: bad numeric attribute %q: %w", m.Value, err)
		}
		return store.Int(n), nil
	case *types.AttributeValueMemberB:
		return store.Bytes(m.Value), nil
	default:
		return store.Value{}, fmt.Errorf("dynamo: unsupported attribute type %T", av)
	}
}

func encodeKey(k store.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		store.AttrPartition: &types.AttributeValueMemberS{Value: k.Partition},
		store.AttrSort:      &types.AttributeValueMemberN{Value: strconv.FormatInt(k.Sort, 10)},
	}
}

func decodeKey(m map[string]types.AttributeValue) (store.Key, error) {
	p, ok := m[store.AttrPartition].(*types.AttributeValueMemberS)
	if !ok {
		return store.Key{}, fmt.Errorf("dynamo: row missing %s key", store.AttrPartition)
	}
	n, ok := m[store.AttrSort].(*types.AttributeValueMemberN)
	if !ok {
		return store.Key{}, fmt.Errorf("dynamo: row missing %s key", store.AttrSort)
	}
	sort, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return store.Key{}, fmt.Errorf("dynamo: bad %s key %q: %w", store.AttrSort, n.Value, err)
	}
	return store.Key{Partition: p.Value, Sort: sort}, nil
}

// encodeItem merges key and non-key attributes into one DynamoDB item.
func encodeItem(k store.Key, attrs store.Item) map[string]types.AttributeValue {
	out := encodeKey(k)
	for name, v := range attrs {
		out[name] = encodeValue(v)
	}
	return out
}

// decodeRow splits a DynamoDB item back into key and non-key attributes.
func decodeRow(m map[string]types.AttributeValue) (store.Row, error) {
	key, err := decodeKey(m)
	if err != nil {
		return store.Row{}, err
	}
	attrs := make(store.Item, len(m))
	for name, av := range m {
		if name == store.AttrPartition || name == store.AttrSort {
			continue
		}
		v, err := decodeValue(av)
		if err != nil {
			return store.Row{}, err
		}
		attrs[name] = v
	}
	return store.Row{Key: key, Attrs: attrs}, nil
}

// condExpr renders a store.Condition as a DynamoDB condition expression with
// its name and value maps.
func condExpr(c *store.Condition) (string, map[string]string, map[string]types.AttributeValue) {
	names := map[string]string{"#c": c.Attr}
	switch c.Op {
	case store.CondEquals:
		return "#c = :c", names, map[string]types.AttributeValue{":c": encodeValue(c.Value)}
	default:
		return "attribute_not_exists(#c)", names, nil
	}
}
