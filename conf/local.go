package conf

type Local struct {
	Locations []Location
}

type Location struct {
	SkipAdmission bool
	PathPrefix    string `valid:"required"`
	TargetModule  string `valid:"required"`
}
