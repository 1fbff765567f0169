// Package icefun programs the SPI flash of a Devantech iceFUN iCE40 board
// through its USB serial programmer.
//
// A Device is obtained from an open serial stream (see package serialport).
// Device.Run resets the FPGA, hands a DeviceInReset to the caller and always
// releases the FPGA afterwards:
//
//	dev := icefun.NewDevice(port)
//	err := dev.Run(func(fpga *icefun.DeviceInReset) error {
//		if err := prog.Erase(ctx, fpga); err != nil {
//			return err
//		}
//		return prog.Program(ctx, fpga)
//	})
//
// # References:
//
// iceFUN
//   - [iceFUN]: iceFUN iCE40 HX8K FPGA module (https://www.robot-electronics.co.uk/icefun.html)
//   - [iceFUN|Programming protocol]: Devantech iceFUNprog programmer sources
//
// FPGA
//   - [Lattice-iCE40]: iCE40 LP/HX Family Data Sheet (FPGA-DS-02029, DS1040)
//
// SPI Flash
//   - [N25Q32]: N25Q032A Micron Serial NOR Flash Memory datasheet (could not find the official public URL)
//   - [W25Q128]: W25Q128JV-DTR Winbond Serial Flash Memory (https://www.winbond.com/resource-files/W25Q128JV_DTR%20RevD%2012232024%20Plus.pdf)
package icefun
