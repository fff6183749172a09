// Package fixtures generates the deterministic demo school used to
// populate an empty store.
package fixtures

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

// Dataset is a complete set of demo records.
type Dataset struct {
	Subjects    []models.Subject
	Teachers    []models.Teacher
	Classes     []models.Class
	Students    []models.Student
	Enrollments []models.Enrollment
	ReportCards []models.ReportCard
}

// Sections are the demo sections, one per grade level starting at 7.
var Sections = []string{"SAMPAGUITA", "PEARL", "NARRA", "ILANG-ILANG"}

// StudentsPerSection fills every demo class to capacity.
const StudentsPerSection = 40

const (
	gradedStudents  = 10
	partialStudents = 25
)

var allGrades = []int{7, 8, 9, 10}

var subjects = []models.Subject{
	{ID: "SUB001", Name: "ENGLISH", Description: "World Literature and Communication", HoursPerWeek: 4},
	{ID: "SUB002", Name: "MATHEMATICS", Description: "Algebra and Geometry", HoursPerWeek: 4},
	{ID: "SUB003", Name: "SCIENCE", Description: "Biology and Chemistry", HoursPerWeek: 4},
	{ID: "SUB004", Name: "FILIPINO", Description: "Panitikan at Wika", HoursPerWeek: 4},
	{ID: "SUB005", Name: "MAPEH", Description: "Music, Arts, PE, and Health", HoursPerWeek: 4},
	{ID: "SUB006", Name: "TLE", Description: "Technology and Livelihood Education", HoursPerWeek: 4},
	{ID: "SUB007", Name: "ARALING PANLIPUNAN", Description: "Social Studies and History", HoursPerWeek: 3},
	{ID: "SUB008", Name: "ESP", Description: "Edukasyon sa Pagpapakatao", HoursPerWeek: 2},
}

var teachers = []models.Teacher{
	{ID: "T001", FirstName: "MARIA", LastName: "SANTOS", Department: "SCIENCE", ContactNumber: "0917-555-0101", Email: "maria.santos@cnhs.edu.ph", HireDate: "2015-06-15"},
	{ID: "T002", FirstName: "RODRIGO", LastName: "PASCUAL", Department: "MATHEMATICS", ContactNumber: "0922-888-2323", Email: "r.pascual@cnhs.edu.ph", HireDate: "2018-08-01"},
	{ID: "T003", FirstName: "ELIZABETH", LastName: "REYES", Department: "ENGLISH", ContactNumber: "0933-111-9988", Email: "e.reyes@cnhs.edu.ph", HireDate: "2012-05-20"},
	{ID: "T004", FirstName: "JAIME", LastName: "CASTILLO", Department: "TLE", ContactNumber: "0944-777-4455", Email: "j.castillo@cnhs.edu.ph", HireDate: "2019-11-10"},
	{ID: "T005", FirstName: "LOURDES", LastName: "MENDOZA", Department: "FILIPINO", ContactNumber: "0918-222-3344", Email: "l.mendoza@cnhs.edu.ph", HireDate: "2016-01-12"},
	{ID: "T006", FirstName: "ANTONIO", LastName: "LUNA", Department: "ARALING PANLIPUNAN", ContactNumber: "0919-333-4455", Email: "a.luna@cnhs.edu.ph", HireDate: "2014-07-22"},
	{ID: "T007", FirstName: "JOSE", LastName: "RIZAL", Department: "ESP", ContactNumber: "0920-444-5566", Email: "j.rizal@cnhs.edu.ph", HireDate: "2010-12-30"},
	{ID: "T008", FirstName: "EMILIO", LastName: "AGUINALDO", Department: "MAPEH", ContactNumber: "0921-555-6677", Email: "e.aguinaldo@cnhs.edu.ph", HireDate: "2011-03-14"},
}

var firstNames = []string{
	"JUAN", "MARIA", "PEDRO", "ANA", "JOSE", "REIN", "CHRIS", "MIA", "LUIS", "BEA", "ARA", "PAUL",
	"MARK", "TESS", "BEN", "MAX", "SAM", "LEO", "ACE", "ROB", "NINA", "ELSA", "TOM", "JERRY",
	"LIZA", "CARLO", "LENI", "VIC", "KEN", "JOY", "DAN", "MIRA", "FELY", "GAB", "JUDE",
}

var lastNames = []string{
	"DELA CRUZ", "LOPEZ", "REYES", "GARCIA", "SANTOS", "PASCUAL", "MENDOZA", "RAMOS", "CRUZ", "TORRES",
	"BAUTISTA", "VILLANUEVA", "CASTILLO", "LUMBERA", "QUIRINO", "OSMEÑA", "ROXAS", "AQUINO", "COJUANGCO",
	"SISON", "VALDEZ", "DIZON", "ALONZO", "DOMINGO", "ESTRADA", "EJERCITO", "GONZALES", "HERNANDEZ",
	"IBARRA", "JACINTO", "KALAW", "LAUREL",
}

// Generate builds the demo school for year. The same seed always yields the
// same grades.
func Generate(seed int64, year string) Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := Dataset{}

	for _, s := range subjects {
		s.GradeLevels = append([]int(nil), allGrades...)
		ds.Subjects = append(ds.Subjects, s)
	}
	ds.Teachers = append(ds.Teachers, teachers...)

	for idx, section := range Sections {
		grade := 7 + idx
		sectionClasses := make([]models.Class, 0, len(subjects))
		for sIdx, sub := range subjects {
			class := models.Class{
				ID:          fmt.Sprintf("CLS_%d_%s_%s", grade, section, sub.ID),
				SubjectID:   sub.ID,
				TeacherID:   teachers[sIdx%len(teachers)].ID,
				GradeLevel:  grade,
				SectionName: section,
				SchoolYear:  year,
				RoomNumber:  "RM " + strconv.Itoa(100+grade*10+sIdx),
				MaxCapacity: StudentsPerSection,
				IsAdviser:   sIdx == 0,
			}
			sectionClasses = append(sectionClasses, class)
		}
		ds.Classes = append(ds.Classes, sectionClasses...)

		for i := 0; i < StudentsPerSection; i++ {
			student := demoStudent(grade, idx, i, section)
			ds.Students = append(ds.Students, student)

			for _, class := range sectionClasses {
				enrollmentID := models.EnrollmentID(student.ID, class.ID)
				ds.Enrollments = append(ds.Enrollments, models.Enrollment{
					ID:        enrollmentID,
					StudentID: student.ID,
					ClassID:   class.ID,
					Status:    models.EnrollmentStatusActive,
				})
				switch {
				case i < gradedStudents:
					ds.ReportCards = append(ds.ReportCards, models.ReportCard{
						ID:           models.ReportCardID(enrollmentID),
						EnrollmentID: enrollmentID,
						Q1:           grade80(rng),
						Q2:           grade80(rng),
						Q3:           grade80(rng),
						Q4:           grade80(rng),
						Remarks:      "EXCELLENT PROGRESS",
					})
				case i < partialStudents:
					ds.ReportCards = append(ds.ReportCards, models.ReportCard{
						ID:           models.ReportCardID(enrollmentID),
						EnrollmentID: enrollmentID,
						Q1:           grade75(rng),
						Q2:           grade75(rng),
						Remarks:      "ONGOING EVALUATION",
					})
				}
			}
		}
	}
	return ds
}

func demoStudent(grade, sectionIdx, i int, section string) models.Student {
	family := lastNames[i%len(lastNames)]
	gender := models.GenderMale
	if i%2 == 1 {
		gender = models.GenderFemale
	}
	return models.Student{
		ID:                   "S" + strconv.Itoa(grade) + strconv.Itoa(100+i),
		LRN:                  strconv.Itoa(120000000000 + grade*1000 + i),
		FirstName:            firstNames[i%len(firstNames)],
		LastName:             lastNames[(i+sectionIdx)%len(lastNames)],
		Gender:               gender,
		DateOfBirth:          fmt.Sprintf("20%02d-05-15", 19-grade),
		PlaceOfBirth:         "CALACA, BATANGAS",
		GradeLevel:           grade,
		Section:              section,
		Status:               models.StudentStatusActive,
		ContactNumber:        "0912-444-" + strconv.Itoa(1000+i),
		MotherName:           "MARIA " + family,
		FatherName:           "JUAN " + family,
		GuardianName:         "JUAN " + family,
		GuardianRelationship: models.RelationshipFather,
	}
}

func grade80(rng *rand.Rand) *int {
	v := 80 + rng.Intn(15)
	return &v
}

func grade75(rng *rand.Rand) *int {
	v := 75 + rng.Intn(15)
	return &v
}
