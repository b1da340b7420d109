package jdwp

import "fmt"

// CmdSet identifies a JDWP command set.
type CmdSet uint8

// JDWP command sets, plus the Android DDMS extension.
const (
	SetVM             CmdSet = 1
	SetRefType        CmdSet = 2
	SetClassType      CmdSet = 3
	SetArrayType      CmdSet = 4
	SetInterfaceType  CmdSet = 5
	SetMethod         CmdSet = 6
	SetField          CmdSet = 8
	SetObjectRef      CmdSet = 9
	SetStringRef      CmdSet = 10
	SetThreadRef      CmdSet = 11
	SetThreadGroupRef CmdSet = 12
	SetArrayRef       CmdSet = 13
	SetClassLoaderRef CmdSet = 14
	SetEventRequest   CmdSet = 15
	SetStackFrame     CmdSet = 16
	SetClassObjectRef CmdSet = 17
	SetEvent          CmdSet = 64
	SetDDMS           CmdSet = 0xC7
)

// CmdDDMS is the single command of SetDDMS. A (SetDDMS, CmdDDMS) command
// packet carries DDMS chunks in its payload.
const CmdDDMS uint8 = 0x01

var cmdSetNames = map[CmdSet]string{
	SetVM:             "SET_VM",
	SetRefType:        "SET_REFTYPE",
	SetClassType:      "SET_CLASSTYPE",
	SetArrayType:      "SET_ARRAYTYPE",
	SetInterfaceType:  "SET_INTERFACETYPE",
	SetMethod:         "SET_METHOD",
	SetField:          "SET_FIELD",
	SetObjectRef:      "SET_OBJREF",
	SetStringRef:      "SET_STRINGREF",
	SetThreadRef:      "SET_THREADREF",
	SetThreadGroupRef: "SET_THREADGROUPREF",
	SetArrayRef:       "SET_ARRAYREF",
	SetClassLoaderRef: "SET_CLASSLOADERREF",
	SetEventRequest:   "SET_EVENTREQUEST",
	SetStackFrame:     "SET_STACKFRAME",
	SetClassObjectRef: "SET_CLASSOBJECTREF",
	SetEvent:          "SET_EVENT",
	SetDDMS:           "SET_DDMS",
}

// cmdNames maps a command set to its command names, indexed by command value.
var cmdNames = map[CmdSet]map[uint8]string{
	SetVM: {
		1:  "CMD_VM_VERSION",
		2:  "CMD_VM_CLASSESBYSIGNATURE",
		3:  "CMD_VM_ALLCLASSES",
		4:  "CMD_VM_ALLTHREADS",
		5:  "CMD_VM_TOPLEVELTHREADGROUPS",
		6:  "CMD_VM_DISPOSE",
		7:  "CMD_VM_IDSIZES",
		8:  "CMD_VM_SUSPEND",
		9:  "CMD_VM_RESUME",
		10: "CMD_VM_EXIT",
		11: "CMD_VM_CREATESTRING",
		12: "CMD_VM_CAPABILITIES",
		13: "CMD_VM_CLASSPATHS",
		14: "CMD_VM_DISPOSEOBJECTS",
		15: "CMD_VM_HOLDEVENTS",
		16: "CMD_VM_RELEASEEVENTS",
		17: "CMD_VM_CAPABILITIESNEW",
		18: "CMD_VM_REDEFINECLASSES",
		19: "CMD_VM_SETDEFAULTSTRATUM",
		20: "CMD_VM_ALLCLASSESWITHGENERIC",
		21: "CMD_VM_INSTANCECOUNTS",
	},
	SetRefType: {
		1:  "CMD_REFTYPE_SIGNATURE",
		2:  "CMD_REFTYPE_CLASSLOADER",
		3:  "CMD_REFTYPE_MODIFIERS",
		4:  "CMD_REFTYPE_FIELDS",
		5:  "CMD_REFTYPE_METHODS",
		6:  "CMD_REFTYPE_GETVALUES",
		7:  "CMD_REFTYPE_SOURCEFILE",
		8:  "CMD_REFTYPE_NESTEDTYPES",
		9:  "CMD_REFTYPE_STATUS",
		10: "CMD_REFTYPE_INTERFACES",
		11: "CMD_REFTYPE_CLASSOBJECT",
		12: "CMD_REFTYPE_SOURCEDEBUGEXTENSION",
		13: "CMD_REFTYPE_SIGNATUREWITHGENERIC",
		14: "CMD_REFTYPE_FIELDSWITHGENERIC",
		15: "CMD_REFTYPE_METHODSWITHGENERIC",
		16: "CMD_REFTYPE_INSTANCES",
		17: "CMD_REFTYPE_CLASSFILEVERSION",
		18: "CMD_REFTYPE_CONSTANTPOOL",
	},
	SetClassType: {
		1: "CMD_CLASSTYPE_SUPERCLASS",
		2: "CMD_CLASSTYPE_SETVALUES",
		3: "CMD_CLASSTYPE_INVOKEMETHOD",
		4: "CMD_CLASSTYPE_NEWINSTANCE",
	},
	SetArrayType: {
		1: "CMD_ARRAYTYPE_NEWINSTANCE",
	},
	SetInterfaceType: {
		1: "CMD_INTERFACETYPE_INVOKEMETHOD",
	},
	SetMethod: {
		1: "CMD_METHOD_LINETABLE",
		2: "CMD_METHOD_VARIABLETABLE",
		3: "CMD_METHOD_BYTECODES",
		4: "CMD_METHOD_ISOBSOLETE",
		5: "CMD_METHOD_VARIABLETABLEWITHGENERIC",
	},
	SetObjectRef: {
		1:  "CMD_OBJREF_REFERENCETYPE",
		2:  "CMD_OBJREF_GETVALUES",
		3:  "CMD_OBJREF_SETVALUES",
		5:  "CMD_OBJREF_MONITORINFO",
		6:  "CMD_OBJREF_INVOKEMETHOD",
		7:  "CMD_OBJREF_DISABLECOLLECTION",
		8:  "CMD_OBJREF_ENABLECOLLECTION",
		9:  "CMD_OBJREF_ISCOLLECTED",
		10: "CMD_OBJREF_REFERRINGOBJECTS",
	},
	SetStringRef: {
		1: "CMD_STRINGREF_VALUE",
	},
	SetThreadRef: {
		1:  "CMD_THREADREF_NAME",
		2:  "CMD_THREADREF_SUSPEND",
		3:  "CMD_THREADREF_RESUME",
		4:  "CMD_THREADREF_STATUS",
		5:  "CMD_THREADREF_THREADGROUP",
		6:  "CMD_THREADREF_FRAMES",
		7:  "CMD_THREADREF_FRAMECOUNT",
		8:  "CMD_THREADREF_OWNEDMONITORS",
		9:  "CMD_THREADREF_CURRENTCONTENDEDMONITOR",
		10: "CMD_THREADREF_STOP",
		11: "CMD_THREADREF_INTERRUPT",
		12: "CMD_THREADREF_SUSPENDCOUNT",
		13: "CMD_THREADREF_OWNEDMONITORSSTACKDEPTHINFO",
		14: "CMD_THREADREF_FORCEEARLYRETURN",
	},
	SetThreadGroupRef: {
		1: "CMD_THREADGROUPREF_NAME",
		2: "CMD_THREADGROUPREF_PARENT",
		3: "CMD_THREADGROUPREF_CHILDREN",
	},
	SetArrayRef: {
		1: "CMD_ARRAYREF_LENGTH",
		2: "CMD_ARRAYREF_GETVALUES",
		3: "CMD_ARRAYREF_SETVALUES",
	},
	SetClassLoaderRef: {
		1: "CMD_CLASSLOADERREF_VISIBLECLASSES",
	},
	SetEventRequest: {
		1: "CMD_EVENTREQUEST_SET",
		2: "CMD_EVENTREQUEST_CLEAR",
		3: "CMD_EVENTREQUEST_CLEARALLBREAKPOINTS",
	},
	SetStackFrame: {
		1: "CMD_STACKFRAME_GETVALUES",
		2: "CMD_STACKFRAME_SETVALUES",
		3: "CMD_STACKFRAME_THISOBJECT",
		4: "CMD_STACKFRAME_POPFRAMES",
	},
	SetClassObjectRef: {
		1: "CMD_CLASSOBJECTREF_REFLECTEDTYPE",
	},
	SetEvent: {
		100: "CMD_EVENT_COMPOSITE",
	},
	SetDDMS: {
		CmdDDMS: "CMD_DDMS",
	},
}

var errorCodeNames = map[uint16]string{
	0:   "NONE",
	10:  "INVALID_THREAD",
	11:  "INVALID_THREAD_GROUP",
	12:  "INVALID_PRIORITY",
	13:  "THREAD_NOT_SUSPENDED",
	14:  "THREAD_SUSPENDED",
	15:  "THREAD_NOT_ALIVE",
	20:  "INVALID_OBJECT",
	21:  "INVALID_CLASS",
	22:  "CLASS_NOT_PREPARED",
	23:  "INVALID_METHODID",
	24:  "INVALID_LOCATION",
	25:  "INVALID_FIELDID",
	30:  "INVALID_FRAMEID",
	31:  "NO_MORE_FRAMES",
	32:  "OPAQUE_FRAME",
	33:  "NOT_CURRENT_FRAME",
	34:  "TYPE_MISMATCH",
	35:  "INVALID_SLOT",
	40:  "DUPLICATE",
	41:  "NOT_FOUND",
	50:  "INVALID_MONITOR",
	51:  "NOT_MONITOR_OWNER",
	52:  "INTERRUPT",
	60:  "INVALID_CLASS_FORMAT",
	61:  "CIRCULAR_CLASS_DEFINITION",
	62:  "FAILS_VERIFICATION",
	63:  "ADD_METHOD_NOT_IMPLEMENTED",
	64:  "SCHEMA_CHANGE_NOT_IMPLEMENTED",
	65:  "INVALID_TYPESTATE",
	66:  "HIERARCHY_CHANGE_NOT_IMPLEMENTED",
	67:  "DELETE_METHOD_NOT_IMPLEMENTED",
	68:  "UNSUPPORTED_VERSION",
	69:  "NAMES_DONT_MATCH",
	70:  "CLASS_MODIFIERS_CHANGE_NOT_IMPLEMENTED",
	71:  "METHOD_MODIFIERS_CHANGE_NOT_IMPLEMENTED",
	99:  "NOT_IMPLEMENTED",
	100: "NULL_POINTER",
	101: "ABSENT_INFORMATION",
	102: "INVALID_EVENT_TYPE",
	103: "ILLEGAL_ARGUMENT",
	110: "OUT_OF_MEMORY",
	111: "ACCESS_DENIED",
	112: "VM_DEAD",
	113: "INTERNAL",
	115: "UNATTACHED_THREAD",
	500: "INVALID_TAG",
	502: "ALREADY_INVOKING",
	503: "INVALID_INDEX",
	504: "INVALID_LENGTH",
	506: "INVALID_STRING",
	507: "INVALID_CLASS_LOADER",
	508: "INVALID_ARRAY",
	509: "TRANSPORT_LOAD",
	510: "TRANSPORT_INIT",
	511: "NATIVE_METHOD",
	512: "INVALID_COUNT",
}

func (s CmdSet) String() string {
	return labeled(cmdSetNames[s], int(s))
}

// CmdName returns the name of command cmd in cmdSet, e.g. CMD_THREADREF_NAME[1].
func CmdName(cmdSet, cmd uint8) string {
	return labeled(cmdNames[CmdSet(cmdSet)][cmd], int(cmd))
}

// ErrorCodeName returns the name of a reply error code, e.g. INVALID_THREAD[10].
func ErrorCodeName(code uint16) string {
	return labeled(errorCodeNames[code], int(code))
}

func labeled(name string, value int) string {
	if name == "" {
		name = "UNKNOWN"
	}
	return fmt.Sprintf("%s[%d]", name, value)
}
