package validators

import "go.mongodb.org/mongo-driver/bson"

var LessonValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"lesson_type",
			"duration",
			"start_time",
			"end_time",
			"coach_id",
			"coach_name",
			"user_id",
			"secret_hash",
			"is_active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"lesson_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"one-time", "recurring"},
			},

			"frequency_per_week": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  3,
			},

			"duration": bson.M{
				"bsonType": []string{"int", "long"},
				"enum":     []int{30, 60},
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"coach_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"coach_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"court_id": bson.M{
				"bsonType": "string",
			},

			// bcrypt output is always 60 bytes
			"secret_hash": bson.M{
				"bsonType":  "string",
				"minLength": 60,
				"maxLength": 60,
			},

			"is_active": bson.M{
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

var LessonLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "expires_at", "created_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
