package validators

import "go.mongodb.org/mongo-driver/bson"

var AdminValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"email", "password_hash", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "objectId"},
			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
				"pattern":   "^[^@\\s]+@[^@\\s]+$",
			},
			"name":          bson.M{"bsonType": "string", "maxLength": 100},
			"password_hash": bson.M{"bsonType": "string", "minLength": 1},
			"created_at":    bson.M{"bsonType": "date"},
		},
	},
}
