package locate

import (
	"path"
	"strings"
)

// TaskKind is the BitBake task a Yocto failure log belongs to.
type TaskKind string

const (
	TaskBuild              TaskKind = "do_build"
	TaskCompile            TaskKind = "do_compile"
	TaskCompilePtestBase   TaskKind = "do_compile_ptest_base"
	TaskConfigure          TaskKind = "do_configure"
	TaskConfigurePtestBase TaskKind = "do_configure_ptest_base"
	TaskDeploy             TaskKind = "do_deploy"
	TaskFetch              TaskKind = "do_fetch"
	TaskMisc               TaskKind = "misc"
)

// longest names first so do_compile_ptest_base wins over do_compile
var taskKinds = []TaskKind{
	TaskConfigurePtestBase,
	TaskCompilePtestBase,
	TaskConfigure,
	TaskCompile,
	TaskDeploy,
	TaskFetch,
	TaskBuild,
}

// TaskKindFromPath derives the task from a log file name such as
// log.do_fetch.21616. Unknown tasks are TaskMisc.
func TaskKindFromPath(p string) TaskKind {
	base := path.Base(strings.TrimSpace(p))
	for _, k := range taskKinds {
		if strings.Contains(base, string(k)) {
			return k
		}
	}
	return TaskMisc
}
