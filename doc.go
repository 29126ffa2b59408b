// Package cron 提供了一个面向单进程/容器环境的极简 cron 守护进程
//
// 基本用法:
//
//	jobs, err := cron.LoadFile("/etc/crontab")
//	for _, le := range cron.LineErrors(err) {
//	    log.Printf("skipped %v", le)
//	}
//
//	c := cron.New(jobs)
//	c.Run(ctx) // 直到 ctx 结束
//
// crontab 格式:
//
//	分 时 日 月 周 命令
//
//	*/15 * * * * echo hi          // 每 15 分钟
//	30 2 * * *   /usr/bin/backup  // 每天 02:30
//	0 9 * * 1-5  ./report.sh      // 工作日 09:00
//	0 0 * * 0    ./weekly.sh      # 周日，0 与 7 都表示周日
//
// 每个字段支持 *、单值、区间 a-b（-b 与 a- 缺省为边界）、列表 a,b,c
// 以及步长 <base>/n（按位置每隔 n 个取一个，从第一个开始）。
// # 之后的内容为注释。
//
// 每个周期（默认 60 秒，从上一轮评估结束开始计时）用同一时刻评估全部任务，
// 匹配的任务通过 `bash -c` 派发为独立子进程，不等待、不捕获输出。
// 需要并发上限或超时时使用 SupervisedRunner:
//
//	runner := cron.NewSupervisedRunner(cron.NewShellRunner("sh", logger), 1, time.Hour)
//	c := cron.New(jobs, cron.WithRunner(runner), cron.WithLogger(logger))
package cron
