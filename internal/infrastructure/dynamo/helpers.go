package dynamo

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// numAttr builds a numeric attribute value from a Unix timestamp or counter.
func numAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
func buildUpdateExpr(updates map[string]interface{}) (expr string, names map[string]string, values map[string]types.AttributeValue, err error) {
	return buildMergeExpr(updates, nil)
}

// buildMergeExpr converts set fields into a SET clause and increment fields
// into an ADD clause. ADD on a numeric attribute is DynamoDB's atomic
// counter; since UpdateItem creates the item when absent, the combination
// gives upsert-with-increment in a single per-document atomic write.
// Keys are emitted in sorted order so expressions are deterministic.
func buildMergeExpr(sets map[string]interface{}, adds map[string]int) (expr string, names map[string]string, values map[string]types.AttributeValue, err error) {
	if len(sets) == 0 && len(adds) == 0 {
		return "", nil, nil, fmt.Errorf("no fields to update")
	}
	names = make(map[string]string)
	values = make(map[string]types.AttributeValue)

	i := 0
	if len(sets) > 0 {
		expr = "SET "
		for _, k := range sortedKeys(sets) {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			names[nameKey] = k
			av, mErr := attributevalue.Marshal(sets[k])
			if mErr != nil {
				return "", nil, nil, fmt.Errorf("marshal field %s: %w", k, mErr)
			}
			values[valueKey] = av
			if i > 0 {
				expr += ", "
			}
			expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
			i++
		}
	}
	if len(adds) > 0 {
		addKeys := make([]string, 0, len(adds))
		for k := range adds {
			addKeys = append(addKeys, k)
		}
		sort.Strings(addKeys)
		if expr != "" {
			expr += " "
		}
		expr += "ADD "
		for j, k := range addKeys {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			names[nameKey] = k
			values[valueKey] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", adds[k])}
			if j > 0 {
				expr += ", "
			}
			expr += fmt.Sprintf("%s %s", nameKey, valueKey)
			i++
		}
	}
	return expr, names, values, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
