package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Contact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Subject   string             `bson:"subject" json:"subject"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Height struct {
	Feet   int `bson:"feet" json:"feet" binding:"gte=0,lte=9"`
	Inches int `bson:"inches" json:"inches" binding:"gte=0,lte=11"`
}

type ShirtMeasurements struct {
	Chest        float64 `bson:"chest" json:"chest" binding:"gte=1"`
	Waist        float64 `bson:"waist" json:"waist" binding:"gte=1"`
	Shoulders    float64 `bson:"shoulders" json:"shoulders" binding:"gte=1"`
	SleeveLength float64 `bson:"sleeveLength" json:"sleeveLength" binding:"gte=1"`
	ShirtLength  float64 `bson:"shirtLength" json:"shirtLength" binding:"gte=1"`
	Neck         float64 `bson:"neck" json:"neck" binding:"gte=1"`
}

type TrouserMeasurements struct {
	Waist      float64 `bson:"waist" json:"waist" binding:"gte=1"`
	Hip        float64 `bson:"hip" json:"hip" binding:"gte=1"`
	Inseam     float64 `bson:"inseam" json:"inseam" binding:"gte=1"`
	Thigh      float64 `bson:"thigh" json:"thigh" binding:"gte=1"`
	LegOpening float64 `bson:"legOpening" json:"legOpening" binding:"gte=1"`
}

type Measurement struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      string              `bson:"userId" json:"userId"`
	Height      Height              `bson:"height" json:"height"`
	Weight      float64             `bson:"weight" json:"weight"`
	BodyType    string              `bson:"bodyType" json:"bodyType"`
	Shirt       ShirtMeasurements   `bson:"shirtMeasurements" json:"shirtMeasurements"`
	Trouser     TrouserMeasurements `bson:"trouserMeasurements" json:"trouserMeasurements"`
	IsSubmitted bool                `bson:"isSubmitted" json:"isSubmitted"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}
