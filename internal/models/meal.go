package models

import "time"

// MealType is the meal a swipe was recorded against.
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
)

// MealTypes lists every meal type in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// SensorAttributes carries the person metadata attached by the swipe device.
type SensorAttributes struct {
	PersonID   string `bson:"person_id,omitempty"`
	PersonName string `bson:"person_name,omitempty"`
}

// MealRecord is one swipe event written by the canteen devices. The field
// names follow the device feed and are never written by this service.
type MealRecord struct {
	Canteen   string            `bson:"device_trigger"`
	MealType  string            `bson:"meal -type"`
	CreatedAt time.Time         `bson:"created_date_utc"`
	Type      string            `bson:"Type,omitempty"`
	Sensor    *SensorAttributes `bson:"sensor_attributes,omitempty"`
}
