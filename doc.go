// Package urcu 是一个用户态 RCU 风格的快照容器，面向读多写少的共享状态。
//
// 一个 Cell 持有某类型 T 的不可变值：读者以近乎零同步成本拿到稳定
// 快照（goroutine 本地缓存 + 版本对账），写者整体替换并递增版本号。
// 适合整表重建、原子替换的场景：路由表、配置、特性开关。
//
// 核心组成：
//   - Handle：显式引用计数的共享所有权引用，计数归零时执行 drop 回调
//   - Source：权威 (value, version) 对，写入自旋锁串行化，读取无锁
//   - Local / slot：每-goroutine 的一格缓存，提供作用域内快照隔离
//   - Guard：作用域句柄，Load/Close 严格配对（Go 没有析构函数，
//     配对纪律由调用方保证、由测试验证）
//   - Reclaimer：后台回收 goroutine，把 drop 回调挪出热路径
//   - Bundle2/3/4、Pack：多 cell 快照打包，LIFO 释放
//
// 读路径从不阻塞写路径，写路径从不等待读者退出。
package urcu
