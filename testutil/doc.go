// Package testutil 提供测试辅助函数与样例数据。
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	req := testutil.SampleRequirements()
package testutil
