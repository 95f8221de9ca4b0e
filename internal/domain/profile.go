package domain

type Profile struct {
	UserID        UserID
	Age           int
	Gender        string
	MaritalStatus string
	HasKids       bool
	HasPets       bool
	WorkStatus    string
}
