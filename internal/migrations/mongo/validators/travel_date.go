package validators

import "go.mongodb.org/mongo-driver/bson"

var TravelDateValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"capacity",
			"is_available",
			"closed_by_admin",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"date": bson.M{
				"bsonType":    "string",
				"pattern":     `^\d{4}-\d{2}-\d{2}$`,
				"description": "calendar day in YYYY-MM-DD",
			},

			"capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"is_available": bson.M{
				"bsonType": "bool",
			},

			"closed_by_admin": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
