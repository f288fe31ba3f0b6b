package validator

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mongoOperators lists the query operators a generated filter may contain.
var mongoOperators = map[string]bool{
	"$and": true, "$or": true, "$not": true,
	"$eq": true, "$ne": true, "$gt": true, "$gte": true, "$lt": true, "$lte": true,
	"$in": true, "$nin": true, "$regex": true, "$options": true,
}

// ValidateMongoDB checks that every operator key of filter is a known query
// operator and that logical operators hold arrays.
func ValidateMongoDB(filter bson.M) error {
	if filter == nil {
		return fmt.Errorf("document is nil")
	}
	return validateMongoValue(filter, "")
}

func validateMongoValue(v any, path string) error {
	switch n := v.(type) {
	case bson.M:
		for k, child := range n {
			if strings.HasPrefix(k, "$") {
				if !mongoOperators[k] {
					return fmt.Errorf("unknown operator %s at %q", k, path)
				}
				if k == "$and" || k == "$or" {
					if _, ok := child.(bson.A); !ok {
						return fmt.Errorf("%s at %q must hold an array", k, path)
					}
				}
			}
			if err := validateMongoValue(child, path+"/"+k); err != nil {
				return err
			}
		}
	case bson.A:
		for i, child := range n {
			if err := validateMongoValue(child, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case bson.D:
		m := bson.M{}
		for _, e := range n {
			m[e.Key] = e.Value
		}
		return validateMongoValue(m, path)
	case primitive.Regex:
		if n.Pattern == "" {
			return fmt.Errorf("empty regular expression at %q", path)
		}
	}
	return nil
}
