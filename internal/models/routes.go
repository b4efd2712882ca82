package models

// Route is the closed-taxonomy intent label assigned to an inbound message.
type Route string

const (
	RouteGeneral          Route = "general"
	RouteCreateClass      Route = "createClass"
	RouteCreateStudents   Route = "createStudents"
	RouteAssignAttendance Route = "assignAttendance"
	RouteEditAttendance   Route = "editAttendance"
	RouteAttendanceFetch  Route = "attendanceFetch"
	RouteParentMessage    Route = "parentMessage"
	RouteAddStudent       Route = "addStudent"
	RouteHelp             Route = "help"
	RouteAskClassName     Route = "askClassName"
	RouteAskStudentData   Route = "askStudentData"
	RouteClarify          Route = "clarify"
)

// Valid reports whether the route belongs to the supported taxonomy.
func (r Route) Valid() bool {
	switch r {
	case RouteGeneral, RouteCreateClass, RouteCreateStudents, RouteAssignAttendance,
		RouteEditAttendance, RouteAttendanceFetch, RouteParentMessage, RouteAddStudent,
		RouteHelp, RouteAskClassName, RouteAskStudentData, RouteClarify:
		return true
	default:
		return false
	}
}

// ListType distinguishes how a roll-number list is to be interpreted.
type ListType string

const (
	ListTypeAbsentees  ListType = "absentees"
	ListTypePresentees ListType = "presentees"
)

// Valid reports whether the list type is supported.
func (t ListType) Valid() bool {
	return t == ListTypeAbsentees || t == ListTypePresentees
}
