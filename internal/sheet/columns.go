// Package sheet turns uploaded spreadsheets into import rows and writes
// templates and exports back out.
package sheet

// Column headers of the import spreadsheet. They are an external contract
// shared with the schools' templates and must not change.
const (
	ColStudentNo     = "学号"
	ColName          = "姓名"
	ColGender        = "性别"
	ColGrade         = "年级"
	ColClass         = "班级"
	ColHeight        = "身高(厘米)"
	ColWeight        = "体重(千克)"
	ColVitalCapacity = "肺活量(毫升)"
	ColRun50m        = "50米跑(秒)"
	ColRopeSkipping  = "1分钟跳绳(次)"
	ColSitUps        = "1分钟仰卧起坐(次)"
	ColSitAndReach   = "坐位体前屈(厘米)"
	ColStandingJump  = "立定跳远(厘米)"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColStudentNo,
	ColName,
	ColGender,
	ColGrade,
	ColClass,
	ColHeight,
	ColWeight,
	ColVitalCapacity,
	ColRun50m,
	ColRopeSkipping,
	ColSitAndReach,
	ColStandingJump,
}

// TemplateColumns is the full header, optional sit-ups column included.
var TemplateColumns = []string{
	ColStudentNo,
	ColName,
	ColGender,
	ColGrade,
	ColClass,
	ColHeight,
	ColWeight,
	ColVitalCapacity,
	ColRun50m,
	ColRopeSkipping,
	ColSitUps,
	ColSitAndReach,
	ColStandingJump,
}

// Extra columns of the score export.
const (
	ColAcademicYear = "学年"
	ColTotalScore   = "总分"
	ColGradeLevel   = "等级"
)
