//go:build cuda

package gpubackend

/*
#cgo LDFLAGS: -L/opt/cuda/lib64 -lcuda
#cgo CFLAGS: -I/opt/cuda/include

#include <cuda.h>
#include <stdlib.h>

CUresult initCUDA() { return cuInit(0); }
CUresult getDeviceCount(int* count) { return cuDeviceGetCount(count); }
CUresult getDevice(CUdevice* device, int ordinal) { return cuDeviceGet(device, ordinal); }
CUresult retainPrimaryContext(CUcontext* ctx, CUdevice device) { return cuDevicePrimaryCtxRetain(ctx, device); }
CUresult setCurrentContext(CUcontext ctx) { return cuCtxSetCurrent(ctx); }
CUresult releasePrimaryContext(CUdevice device) { return cuDevicePrimaryCtxRelease(device); }
CUresult allocMem(CUdeviceptr* ptr, size_t bytes) { return cuMemAlloc(ptr, bytes); }
CUresult freeMem(CUdeviceptr ptr) { return cuMemFree(ptr); }
CUresult copyHtoD(CUdeviceptr dst, void* src, size_t bytes) { return cuMemcpyHtoD(dst, src, bytes); }
CUresult copyDtoH(void* dst, CUdeviceptr src, size_t bytes) { return cuMemcpyDtoH(dst, src, bytes); }
CUresult loadModule(CUmodule* module, const char* ptx) { return cuModuleLoadData(module, ptx); }
CUresult getFunction(CUfunction* func, CUmodule module, const char* name) { return cuModuleGetFunction(func, module, name); }
CUresult launchKernel(CUfunction func,
                      unsigned int gridX, unsigned int gridY, unsigned int gridZ,
                      unsigned int blockX, unsigned int blockY, unsigned int blockZ,
                      unsigned int sharedMem, void* params) {
    return cuLaunchKernel(func, gridX, gridY, gridZ, blockX, blockY, blockZ,
                          sharedMem, NULL, (void**)params, NULL);
}
CUresult synchronize() { return cuCtxSynchronize(); }
const char* getErrorString(CUresult err) {
    const char* str;
    cuGetErrorString(err, &str);
    return str;
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
)

// kernelName is the exported symbol the driver looks up in the loaded
// PTX module: one thread per scalar, computing k*G via the window table
// uploaded by uploadWindowTable.
const kernelName = "bsgs_scalar_base_mul_batch"

// CudaBackend launches the batched scalar_base_mul kernel on a single
// CUDA device. When no device or no PTX is present it is not usable and
// Select uses the CPU backend instead; a device error during a batch
// makes ScalarBaseMulBatch compute that batch on the CPU from the window
// table.
type CudaBackend struct {
	device   C.CUdevice
	ctx      C.CUcontext
	module   C.CUmodule
	fn       C.CUfunction
	table    *WindowTable
	tableX   C.CUdeviceptr
	tableY   C.CUdeviceptr
	ok       bool
}

// newCUDABackend initializes the CUDA driver, opens device 0, and loads
// the kernel from the path named by the BSGS_PTX_PATH environment
// variable. Any failure along this chain leaves the backend unavailable
// rather than erroring the whole process, since CUDA may legitimately be
// absent on the host.
func newCUDABackend() (Backend, error) {
	if res := C.initCUDA(); res != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("gpubackend: cuInit: %s", C.GoString(C.getErrorString(res)))
	}

	var count C.int
	if res := C.getDeviceCount(&count); res != C.CUDA_SUCCESS || count == 0 {
		return nil, fmt.Errorf("gpubackend: no CUDA devices present")
	}

	var device C.CUdevice
	if res := C.getDevice(&device, 0); res != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("gpubackend: cuDeviceGet: %s", C.GoString(C.getErrorString(res)))
	}

	var ctx C.CUcontext
	if res := C.retainPrimaryContext(&ctx, device); res != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("gpubackend: cuDevicePrimaryCtxRetain: %s", C.GoString(C.getErrorString(res)))
	}
	if res := C.setCurrentContext(ctx); res != C.CUDA_SUCCESS {
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: cuCtxSetCurrent: %s", C.GoString(C.getErrorString(res)))
	}

	b := &CudaBackend{device: device, ctx: ctx}

	ptxPath := os.Getenv("BSGS_PTX_PATH")
	if ptxPath == "" {
		// No kernel to load; the device is real but we have nothing to run
		// on it, so report unavailable rather than guess a kernel name.
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: BSGS_PTX_PATH not set")
	}
	ptx, err := os.ReadFile(ptxPath)
	if err != nil {
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: reading PTX: %w", err)
	}
	cptx := C.CString(string(ptx))
	defer C.free(unsafe.Pointer(cptx))

	var module C.CUmodule
	if res := C.loadModule(&module, cptx); res != C.CUDA_SUCCESS {
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: cuModuleLoadData: %s", C.GoString(C.getErrorString(res)))
	}
	b.module = module

	cname := C.CString(kernelName)
	defer C.free(unsafe.Pointer(cname))
	var fn C.CUfunction
	if res := C.getFunction(&fn, module, cname); res != C.CUDA_SUCCESS {
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: cuModuleGetFunction(%s): %s", kernelName, C.GoString(C.getErrorString(res)))
	}
	b.fn = fn

	table, err := BuildWindowTable(nil)
	if err != nil {
		C.releasePrimaryContext(device)
		return nil, fmt.Errorf("gpubackend: building window table: %w", err)
	}
	if err := b.uploadWindowTable(table); err != nil {
		C.releasePrimaryContext(device)
		return nil, err
	}

	b.ok = true
	return b, nil
}

func (b *CudaBackend) uploadWindowTable(wt *WindowTable) error {
	const tableBytes = WindowChunks * WindowSize * 32

	xFlat := make([]byte, 0, tableBytes)
	yFlat := make([]byte, 0, tableBytes)
	for c := 0; c < WindowChunks; c++ {
		for j := 0; j < WindowSize; j++ {
			xFlat = append(xFlat, wt.X[c][j][:]...)
			yFlat = append(yFlat, wt.Y[c][j][:]...)
		}
	}

	if res := C.allocMem(&b.tableX, C.size_t(tableBytes)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("gpubackend: allocating X table: %s", C.GoString(C.getErrorString(res)))
	}
	if res := C.copyHtoD(b.tableX, unsafe.Pointer(&xFlat[0]), C.size_t(tableBytes)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("gpubackend: uploading X table: %s", C.GoString(C.getErrorString(res)))
	}
	if res := C.allocMem(&b.tableY, C.size_t(tableBytes)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("gpubackend: allocating Y table: %s", C.GoString(C.getErrorString(res)))
	}
	if res := C.copyHtoD(b.tableY, unsafe.Pointer(&yFlat[0]), C.size_t(tableBytes)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("gpubackend: uploading Y table: %s", C.GoString(C.getErrorString(res)))
	}
	b.table = wt
	return nil
}

func (b *CudaBackend) Name() string    { return "cuda" }
func (b *CudaBackend) Available() bool { return b.ok }

// ScalarBaseMulBatch uploads the scalar batch, launches one thread per
// scalar, and downloads the resulting affine points. On any device error
// it falls back to the CPU-side window-table reconstruction for that
// batch, since a mid-run device hiccup shouldn't abort a multi-hour search.
func (b *CudaBackend) ScalarBaseMulBatch(scalars []field.U256) []curve.Affine {
	out := make([]curve.Affine, len(scalars))

	in := make([]byte, len(scalars)*32)
	for i, s := range scalars {
		sb := s.ToBytes()
		copy(in[i*32:], sb[:])
	}

	inBytes := C.size_t(len(in))
	outBytes := C.size_t(len(scalars) * 64)

	var devIn, devOut C.CUdeviceptr
	if res := C.allocMem(&devIn, inBytes); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}
	defer C.freeMem(devIn)
	if res := C.allocMem(&devOut, outBytes); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}
	defer C.freeMem(devOut)

	if res := C.copyHtoD(devIn, unsafe.Pointer(&in[0]), inBytes); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}

	n := C.uint(len(scalars))
	params := []unsafe.Pointer{
		unsafe.Pointer(&devIn),
		unsafe.Pointer(&devOut),
		unsafe.Pointer(&b.tableX),
		unsafe.Pointer(&b.tableY),
		unsafe.Pointer(&n),
	}
	cParams := C.malloc(C.size_t(len(params)) * C.size_t(unsafe.Sizeof(uintptr(0))))
	defer C.free(cParams)
	cParamsSlice := (*[1 << 20]unsafe.Pointer)(cParams)[:len(params):len(params)]
	copy(cParamsSlice, params)

	const block = 256
	grid := (uint32(len(scalars)) + block - 1) / block
	if res := C.launchKernel(b.fn, C.uint(grid), 1, 1, block, 1, 1, 0, cParams); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}
	if res := C.synchronize(); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}

	result := make([]byte, len(scalars)*64)
	if res := C.copyDtoH(unsafe.Pointer(&result[0]), devOut, outBytes); res != C.CUDA_SUCCESS {
		return b.fallback(scalars)
	}

	for i := range scalars {
		x, err := field.FromBytesFp(result[i*64 : i*64+32])
		if err != nil {
			return b.fallback(scalars)
		}
		y, err := field.FromBytesFp(result[i*64+32 : i*64+64])
		if err != nil {
			return b.fallback(scalars)
		}
		out[i] = curve.Affine{X: x, Y: y}
	}
	return out
}

func (b *CudaBackend) fallback(scalars []field.U256) []curve.Affine {
	out := make([]curve.Affine, len(scalars))
	for i, s := range scalars {
		j, err := b.table.ScalarBaseMul(s)
		if err != nil {
			out[i] = curve.ToAffine(curve.ScalarBaseMul(s))
			continue
		}
		out[i] = curve.ToAffine(j)
	}
	return out
}

func (b *CudaBackend) Close() error {
	if b.tableX != 0 {
		C.freeMem(b.tableX)
	}
	if b.tableY != 0 {
		C.freeMem(b.tableY)
	}
	res := C.releasePrimaryContext(b.device)
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("gpubackend: cuDevicePrimaryCtxRelease: %s", C.GoString(C.getErrorString(res)))
	}
	return nil
}
