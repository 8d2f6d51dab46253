package validators

import "go.mongodb.org/mongo-driver/bson"

var ParticipantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"travel_date_id",
			"user_id",
			"name",
			"phone",
			"transportation_type",
			"origin_city",
			"destination_city",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"travel_date_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"phone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"transportation_type": bson.M{
				"enum": []string{"flight", "bus"},
			},

			"origin_city": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"destination_city": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"account": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"name":  bson.M{"bsonType": "string"},
					"email": bson.M{"bsonType": "string"},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},

		// the selected transportation variant must carry its three fields
		"oneOf": []bson.M{
			{
				"properties": bson.M{"transportation_type": bson.M{"enum": []string{"flight"}}},
				"required":   []string{"flight", "flight_code", "flight_departure_time"},
			},
			{
				"properties": bson.M{"transportation_type": bson.M{"enum": []string{"bus"}}},
				"required":   []string{"bus_company", "bus_ticket_type", "bus_departure_time"},
			},
		},
	},
}
