package model

// Coach names are unique and serve as the scheduling lookup key.
type Coach struct {
	ID   string `json:"id,omitempty" bson:"_id,omitempty"`
	Name string `json:"name" bson:"name"`
}

type User struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string `json:"name" bson:"name"`
	PhoneNumber string `json:"phone_number" bson:"phone_number"`
}

// Court is part of the domain but capacity does not consult it.
type Court struct {
	ID                  string `json:"id,omitempty" bson:"_id,omitempty"`
	Name                string `json:"name" bson:"name"`
	AvailableOnWeekends bool   `json:"available_on_weekends" bson:"available_on_weekends"`
}
