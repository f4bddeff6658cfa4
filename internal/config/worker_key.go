package config

type WorkerKeyStruct struct {
	ProcessScansQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ProcessScansQueue: "process_scans_queue",
}
